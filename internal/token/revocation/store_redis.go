// Package revocation keeps a denylist of revoked session credential IDs.
// The session credential is self-contained, so without this list a cleared
// cookie remains replayable until expiry; logout writes the jti here for the
// credential's remaining TTL and the session middleware consults it.
package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "caregate_is_token_revoked_duration_ms",
	Help:    "Latency of session revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedKeyPrefix = "session:revoked:"

// RedisDenylist is a Redis-backed revocation list, shared across instances.
type RedisDenylist struct {
	client *redis.Client
}

// NewRedisDenylist constructs a Redis-backed denylist.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

// RevokeToken adds a credential to the denylist for its remaining TTL.
// The key expiring is exactly the credential expiring, so the list never
// grows beyond in-flight sessions.
func (d *RedisDenylist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	// "1" is a marker; key existence is what matters.
	return d.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked checks whether a credential has been revoked. A missing key
// means not revoked (or already expired, which is equivalent).
func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	err := d.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
