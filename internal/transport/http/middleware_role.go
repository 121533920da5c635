package httptransport

import (
	"log/slog"
	"net/http"

	"caregate/internal/account"
	"caregate/pkg/requestcontext"
)

// RequireRole gates a route group to the given roles. Must run after
// RequireSession so the role is already on the context.
func RequireRole(logger *slog.Logger, roles ...account.Role) func(http.Handler) http.Handler {
	allowed := make(map[account.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := account.Role(requestcontext.Role(r.Context()))
			if _, ok := allowed[role]; !ok {
				logger.WarnContext(r.Context(), "forbidden - role not allowed",
					"role", string(role),
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error":             "insufficient_permissions",
					"error_description": "This resource is not available to your role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
