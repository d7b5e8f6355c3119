// Package httpapi assembles the public HTTP surface: middleware chain,
// authenticated verification routes, and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verifica/internal/platform/middleware"
	"verifica/internal/verification/handler"
	"verifica/pkg/platform/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a ping function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// Deps carries everything the router mounts. Redis is optional; a nil checker
// is skipped in /healthz.
type Deps struct {
	Verifications *handler.Handler
	Auth          middleware.JWTValidator
	Logger        *slog.Logger
	DB            HealthChecker
	Redis         HealthChecker
	Timeout       time.Duration
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", healthz(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(deps.Auth, deps.Logger))
		r.Mount("/verifications", deps.Verifications.Routes())
	})

	return r
}

func healthz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range map[string]HealthChecker{"database": deps.DB, "redis": deps.Redis} {
			if dep == nil {
				continue
			}
			if err := dep.Health(ctx); err != nil {
				checks[name] = "unavailable"
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
