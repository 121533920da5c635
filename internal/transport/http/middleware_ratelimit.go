package httptransport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginRateLimiter throttles login and callback traffic per client IP. eID
// round-trips are expensive on the broker side; a runaway client should be
// stopped here, not at the broker.
type LoginRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLoginRateLimiter creates a limiter allowing perMinute requests per IP
// with the given burst.
func NewLoginRateLimiter(perMinute, burst int) *LoginRateLimiter {
	return &LoginRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
	}
}

// Middleware enforces the limit, responding 429 when exceeded.
func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limited",
				"error_description": "Too many login attempts, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()

	// Opportunistic cleanup so the map does not grow unbounded.
	if len(l.limiters) > 10000 {
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, v := range l.limiters {
			if v.lastAccess.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
	}

	return entry.limiter.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
