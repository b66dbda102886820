package subscriptionsync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/subscription-sync/internal/app/bootstrap"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	schedulerservice "github.com/magabrotheeeer/subscription-sync/internal/services/scheduler"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP API вместе с фоновым циклом синхронизации.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	deps      *bootstrap.Components
	scheduler *schedulerservice.SchedulerService
}

// New собирает зависимости и HTTP-сервер. Цикл синхронизации не создаётся,
// если он отключён в настройках.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		logger: logger,
		deps:   deps,
	}

	services := Services{
		Users:    deps.Users,
		Remote:   deps.Beag,
		Syncer:   deps.Sync,
		SyncRuns: deps.Storage,
		DB:       deps.Storage,
	}
	if !cfg.WorkerDisabled {
		app.scheduler = schedulerservice.NewSchedulerService(deps.Sync, cfg.SyncInterval(), logger)
		services.Worker = app.scheduler
	} else {
		logger.Info("in-process sync worker is disabled")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, services)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и цикл синхронизации и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	consumerDone, err := a.deps.StartConsumer(workerCtx)
	if err != nil {
		a.deps.Close()
		return err
	}

	var wg sync.WaitGroup
	if a.scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.scheduler.Run(workerCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	stopWorker()
	a.logger.Info("waiting for sync worker to stop")
	wg.Wait()
	a.logger.Info("waiting for queue consumer to stop")
	<-consumerDone
	a.deps.Close()
	return err
}
