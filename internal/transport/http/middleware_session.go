package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"caregate/internal/clienttype"
	"caregate/internal/platform/metrics"
	"caregate/internal/token"
	"caregate/pkg/requestcontext"
)

// RevocationChecker reports whether a credential jti has been revoked.
// Nil-safe at the call site: no denylist means no revocation.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// writeAuthError writes the unauthenticated envelope. The authenticated
// field makes /me rejections self-describing for frontends that probe
// session state.
func writeAuthError(w http.ResponseWriter, status int, errCode, errDesc string) {
	writeJSON(w, status, map[string]any{
		"authenticated":     false,
		"error":             errCode,
		"error_description": errDesc,
	})
}

// RequireSession is the access gate: it extracts the session credential by
// the client type's transport rule, verifies it, optionally checks the
// revocation denylist, and attaches {accountID, role} to the context.
// Rejection detail names the client type and attempted transport, never the
// secret or signature.
func RequireSession(codec *token.Codec, revocations RevocationChecker, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ct := clientTypeFrom(r)

			raw, transport := extractCredential(r, ct)
			if raw == "" {
				logger.WarnContext(ctx, "unauthenticated request - missing credential",
					"client_type", string(ct),
					"transport", transport,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "not_authenticated",
					"No session credential in "+transport+" for client type "+string(ct))
				return
			}

			claims, err := codec.Verify(raw)
			if err != nil {
				m.TokenVerifications.WithLabelValues("rejected").Inc()
				logger.WarnContext(ctx, "unauthenticated request - invalid credential",
					"error", err,
					"client_type", string(ct),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid_or_expired_token",
					"Invalid or expired session credential")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(ctx, claims.ID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check credential revocation",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error":             "internal_error",
						"error_description": "Failed to validate credential",
					})
					return
				}
				if revoked {
					m.TokenVerifications.WithLabelValues("revoked").Inc()
					logger.WarnContext(ctx, "unauthenticated request - credential revoked",
						"request_id", requestcontext.RequestID(ctx),
					)
					writeAuthError(w, http.StatusUnauthorized, "invalid_or_expired_token",
						"Session credential has been revoked")
					return
				}
			}

			m.TokenVerifications.WithLabelValues("ok").Inc()
			ctx = requestcontext.WithAccountID(ctx, claims.Subject)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			ctx = requestcontext.WithTokenID(ctx, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractCredential pulls the raw credential using the transport rule for
// the client type, and names the transport it tried for diagnostics.
func extractCredential(r *http.Request, ct clienttype.ClientType) (raw, transport string) {
	if ct == clienttype.NativeApp {
		authHeader := r.Header.Get("Authorization")
		if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return after, "authorization header"
		}
		return "", "authorization header"
	}
	return cookieValue(r, cookieSession), "session cookie"
}
