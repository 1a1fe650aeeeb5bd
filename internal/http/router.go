package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/plannerhq/schedassist/internal/auth"
	"github.com/plannerhq/schedassist/internal/config"
	"github.com/plannerhq/schedassist/internal/http/api"
	"github.com/plannerhq/schedassist/internal/http/ratelimit"
	"github.com/plannerhq/schedassist/internal/metrics"
	"github.com/plannerhq/schedassist/internal/store"
)

// NewRouter wires health, metrics, and the planning API.
func NewRouter(cfg *config.Config, st *store.Store, authService *auth.Service, apiHandler *api.Handler) http.Handler {
	r := chi.NewRouter()

	// planning runs fan out real work, keep the trigger rate modest
	apiRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiRateLimiter.Middleware())
		r.Use(authService.RequireAPIAuth)
		r.Post("/plan-runs", apiHandler.CreatePlanRun)
		r.Get("/plan-runs/{id}", apiHandler.GetPlanRun)
	})

	return r
}
