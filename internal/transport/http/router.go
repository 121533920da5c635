package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caregate/internal/platform/metrics"
	"caregate/internal/token"
)

// HealthChecker is anything the readiness probe should ping.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig collects the router dependencies.
type RouterConfig struct {
	Auth        *AuthHandler
	Codec       *token.Codec
	Revocations RevocationChecker
	RateLimiter *LoginRateLimiter
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Health      map[string]HealthChecker
}

// NewRouter assembles the HTTP surface. Login, callback and logout are
// public; everything behind RequireSession also passes the CSRF guard.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetadata)

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Get("/login", cfg.Auth.handleLoginRedirect)
		r.Post("/login", cfg.Auth.handleNativeLogin)
		r.Get("/callback", cfg.Auth.handleCallback)
		r.Post("/callback", cfg.Auth.handleCallback)
	})

	r.Post("/logout", cfg.Auth.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Codec, cfg.Revocations, cfg.Metrics, cfg.Logger))
		r.Use(CSRFGuard(cfg.Logger))
		r.Get("/me", cfg.Auth.handleMe)
	})

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// healthHandler pings each registered dependency with a short deadline and
// reports per-dependency status. Any failure degrades the overall status to
// 503 so load balancers stop routing here.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		writeJSON(w, status, body)
	}
}
