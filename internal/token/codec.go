// Package token signs and verifies the application session credential: a
// compact, self-contained JWT proving authentication for a bounded TTL.
// There is no server-side session store; verification is a pure function of
// the signed payload and the signing key.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "caregate/pkg/domain-errors"
)

// Claims are the session credential payload. Subject carries the account ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Credential is a freshly issued session credential plus the metadata the
// transport layer needs to deliver and later revoke it.
type Credential struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Codec handles session credential creation and validation.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewCodec builds a Codec. TTL is the single configured session lifetime;
// there is no per-call override.
func NewCodec(signingKey, issuer, audience string, ttl time.Duration) *Codec {
	return &Codec{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// TTL returns the configured session lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue mints a signed credential for the given account at the given time.
func (c *Codec) Issue(accountID uuid.UUID, role string, now time.Time) (*Credential, error) {
	jti := uuid.NewString()
	expiresAt := now.Add(c.ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Audience:  []string{c.audience},
			ID:        jti,
		},
	})

	signed, err := t.SignedString(c.signingKey)
	if err != nil {
		return nil, err
	}
	return &Credential{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry. Any failure — malformed token, wrong
// signature, expired — comes back as a single unauthorized error so callers
// treat them all as "unauthenticated" without distinguishing subtypes to the
// client.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithAudience(c.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
