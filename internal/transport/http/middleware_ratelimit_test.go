package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func limitedHandler(limiter *LoginRateLimiter) http.Handler {
	return limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestLoginRateLimiter_BurstThenThrottle(t *testing.T) {
	handler := limitedHandler(NewLoginRateLimiter(1, 3))

	for i := range 3 {
		rr := doFrom(handler, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rr.Code, "request %d inside the burst", i)
	}

	rr := doFrom(handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLoginRateLimiter_PerIPIsolation(t *testing.T) {
	handler := limitedHandler(NewLoginRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, "10.0.0.1:9999").Code, "same IP, different port")
	assert.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.2:1234").Code, "different IP has its own budget")
}

func TestLoginRateLimiter_ThrottledResponseShape(t *testing.T) {
	handler := limitedHandler(NewLoginRateLimiter(1, 1))
	doFrom(handler, "10.0.0.1:1234")

	rr := doFrom(handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "rate_limited")
}
