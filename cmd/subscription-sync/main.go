// Package main Subscription Sync API
//
// @title           Subscription Sync API
// @version         1.0
// @description     Локальная копия подписок пользователей с периодической синхронизацией
// @description     из внешнего биллингового сервиса.
// @BasePath  /
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/magabrotheeeer/subscription-sync/docs"
	subscriptionsync "github.com/magabrotheeeer/subscription-sync/internal/app/subscription-sync"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/logger"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting subscription-sync", slog.String("env", cfg.Env))
	log.Debug("loaded config", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := subscriptionsync.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("subscription-sync stopped gracefully")
}
