package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/billforge/billforge/internal/billing"
	"github.com/billforge/billforge/internal/observability"
	"github.com/billforge/billforge/internal/payments"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "development", cfg.AppEnv)
	require.False(t, cfg.IsProduction())
	require.Positive(t, cfg.RateLimit)
	require.Positive(t, cfg.SummaryCacheTTL)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ADDR", ":9999")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.AppAddr)
	require.True(t, cfg.IsProduction())
}

func TestTestModeToggle(t *testing.T) {
	t.Setenv("BILLFORGE_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv("BILLFORGE_TEST_MODE", "")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestRouterHealthAndMetrics(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	log := slog.Default()
	validate := validator.New()
	metrics := observability.NewMetrics()

	router := NewRouter(RouterConfig{
		Middleware: MiddlewareConfig{Logger: log, Config: cfg, Metrics: metrics},
		Billing:    billing.NewHandler(nil, validate, log),
		Payments:   payments.NewHandler(nil, validate, log),
		Metrics:    metrics,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
