package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/billforge/billforge/internal/app"
	"github.com/billforge/billforge/internal/billing"
	"github.com/billforge/billforge/internal/platform/db"
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

	worker := jobs.NewWorker(billing.NewRepository(pool), log)
	server := jobs.NewServer(cfg.RedisAddr, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("worker started", "redis", cfg.RedisAddr)
		errCh <- server.Run(worker.Mux())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("worker failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		server.Shutdown()
	}
	log.Info("worker stopped")
}
