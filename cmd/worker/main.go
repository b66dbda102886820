package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/subscription-sync/internal/app/scheduler"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/logger"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting subscription sync worker",
		slog.String("env", cfg.Env),
		slog.Int("interval_hours", cfg.SyncIntervalHours))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("worker stopped gracefully")
}
