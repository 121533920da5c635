package httptransport

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"caregate/internal/clienttype"
	"caregate/pkg/requestcontext"
)

// headerCSRF carries the client's echo of the csrf_token cookie.
const headerCSRF = "x-csrf-token"

// CSRFGuard enforces the double-submit check on cookie-transport clients.
// Native-app requests are exempt: a bearer header cannot be attached by a
// cross-site form, so the browser forgery model does not apply. No
// server-side token store exists — the check is cookie vs header only.
//
// Missing header rejects 403; a header that does not match the cookie
// rejects 401.
func CSRFGuard(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := clientTypeFrom(r)
			if ct == clienttype.NativeApp {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(headerCSRF)
			if headerToken == "" {
				logger.WarnContext(r.Context(), "csrf check failed - missing header",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error":             "csrf_token_missing",
					"error_description": "Missing " + headerCSRF + " header",
				})
				return
			}

			cookieToken := cookieValue(r, cookieCSRF)
			if cookieToken == "" ||
				subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) != 1 {
				logger.WarnContext(r.Context(), "csrf check failed - token mismatch",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":             "csrf_token_mismatch",
					"error_description": "CSRF token does not match",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
