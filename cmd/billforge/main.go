package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/billforge/billforge/internal/app"
	"github.com/billforge/billforge/internal/billing"
	"github.com/billforge/billforge/internal/catalog"
	"github.com/billforge/billforge/internal/directory"
	"github.com/billforge/billforge/internal/observability"
	"github.com/billforge/billforge/internal/payments"
	"github.com/billforge/billforge/internal/platform/db"
	"github.com/billforge/billforge/internal/sequence"
	"github.com/billforge/billforge/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	log := app.NewLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = asynqClient.Close() }()

	validate := validator.New()
	metrics := observability.NewMetrics()

	billStore := billing.NewRepository(pool)
	billSvc := billing.NewService(
		billStore,
		catalog.NewRepository(pool),
		directory.New(pool),
		sequence.NewGenerator(pool),
		jobs.NewPublisher(asynqClient, log),
		billing.NewSummaryCache(rdb, cfg.SummaryCacheTTL, log),
	)

	paySvc := payments.NewService(payments.NewRepository(pool))

	router := app.NewRouter(app.RouterConfig{
		Middleware: app.MiddlewareConfig{Logger: log, Config: cfg, Metrics: metrics},
		Billing:    billing.NewHandler(billSvc, validate, log),
		Payments:   payments.NewHandler(paySvc, validate, log),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.AppAddr, "env", cfg.AppEnv)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
