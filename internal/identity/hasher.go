package identity

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the one-way account correlation key from a personnummer.
// Keyed BLAKE2b-256 with a server secret: deterministic for lookups,
// irreversible by design. The output is only ever used as a lookup key —
// never logged, never returned in a response body.
type Hasher struct {
	key []byte
}

// NewHasher builds a Hasher from the configured secret. BLAKE2b keys are
// capped at 64 bytes, so longer secrets are folded down first.
func NewHasher(secret string) *Hasher {
	key := []byte(secret)
	if len(key) > 64 {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{key: key}
}

// Hash returns the hex-encoded keyed digest of a normalized personnummer.
func (h *Hasher) Hash(personalNumber string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Key length is validated in NewHasher; New256 cannot fail here.
		panic(err)
	}
	mac.Write([]byte(personalNumber))
	return hex.EncodeToString(mac.Sum(nil))
}
