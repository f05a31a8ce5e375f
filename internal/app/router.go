package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billforge/billforge/internal/billing"
	"github.com/billforge/billforge/internal/observability"
	"github.com/billforge/billforge/internal/payments"
	"github.com/billforge/billforge/internal/platform/httpx"
)

// RouterConfig aggregates everything the HTTP router mounts.
type RouterConfig struct {
	Middleware MiddlewareConfig
	Billing    *billing.Handler
	Payments   *payments.Handler
	Metrics    *observability.Metrics
}

// NewRouter assembles the application router.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(MiddlewareStack(cfg.Middleware)...)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		cfg.Billing.Mount(api)
		api.Mount("/payments", cfg.Payments.Routes())
	})

	return r
}
