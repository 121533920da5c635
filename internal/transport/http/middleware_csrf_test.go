package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"caregate/internal/clienttype"
	"caregate/pkg/testutil"
)

func csrfProtected(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := CSRFGuard(logger)
	return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFGuard_MatchingTokensPass(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.AddCookie(&http.Cookie{Name: cookieCSRF, Value: "nonce"})
	req.Header.Set(headerCSRF, "nonce")

	rr := testutil.DoRequest(csrfProtected(t), req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestCSRFGuard_MissingHeaderIs403(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.AddCookie(&http.Cookie{Name: cookieCSRF, Value: "nonce"})

	rr := testutil.DoRequest(csrfProtected(t), req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
	testutil.AssertErrorCode(t, rr, "csrf_token_missing")
}

func TestCSRFGuard_MismatchIs401(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.AddCookie(&http.Cookie{Name: cookieCSRF, Value: "nonce"})
	req.Header.Set(headerCSRF, "different")

	rr := testutil.DoRequest(csrfProtected(t), req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(t, rr, "csrf_token_mismatch")
}

func TestCSRFGuard_MissingCookieIs401(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.Header.Set(headerCSRF, "nonce")

	rr := testutil.DoRequest(csrfProtected(t), req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestCSRFGuard_NativeAppExempt(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.Header.Set(clienttype.Header, "app")

	rr := testutil.DoRequest(csrfProtected(t), req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestCSRFGuard_MobileBrowserNotExempt(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/me")
	req.Header.Set(clienttype.Header, "mobile")

	rr := testutil.DoRequest(csrfProtected(t), req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
