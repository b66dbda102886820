// Package scheduler содержит отдельное приложение фоновой синхронизации подписок
// без HTTP API.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/subscription-sync/internal/app/bootstrap"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	schedulerservice "github.com/magabrotheeeer/subscription-sync/internal/services/scheduler"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	deps             *bootstrap.Components
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		schedulerService: schedulerservice.NewSchedulerService(deps.Sync, cfg.SyncInterval(), logger),
		deps:             deps,
		logger:           logger,
	}, nil
}

// Run выполняет цикл синхронизации до отмены ctx и освобождает ресурсы.
// Если настроен RabbitMQ, параллельно обрабатываются запросы из очереди.
func (a *App) Run(ctx context.Context) error {
	consumerDone, err := a.deps.StartConsumer(ctx)
	if err != nil {
		a.deps.Close()
		return err
	}
	a.schedulerService.Run(ctx)
	<-consumerDone

	a.logger.Info("shutting down scheduler service")
	a.deps.Close()
	return nil
}
