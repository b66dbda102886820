// Package bootstrap собирает общие зависимости приложений: хранилище с миграциями,
// кэш, клиент внешнего сервиса, публикацию событий и сервис синхронизации.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-sync/internal/beag"
	"github.com/magabrotheeeer/subscription-sync/internal/cache"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/migrations"
	syncservice "github.com/magabrotheeeer/subscription-sync/internal/services/sync"
	userservice "github.com/magabrotheeeer/subscription-sync/internal/services/user"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

const (
	dbAttempts = 10
	dbDelay    = 3 * time.Second
)

// Components — собранные зависимости. Cache равен nil, если Redis не настроен.
type Components struct {
	Storage *repository.Storage
	Cache   *cache.Cache
	Beag    *beag.Client
	Metrics *metrics.Metrics
	Sync    *syncservice.SyncService
	Users   *userservice.UserService

	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

// Setup подключается к базе (с повторами), применяет миграции и собирает сервисы.
// Redis и RabbitMQ необязательны: при пустом адресе они не используются.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	const op = "bootstrap.Setup"
	c := &Components{log: logger}

	db, err := waitForDB(ctx, cfg.StorageConnectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Storage = db

	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := repository.CheckDatabaseReady(ctx, db); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		syncCache syncservice.Cache
		userCache userservice.Cache
	)
	if cfg.AddressRedis != "" {
		c.Cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		syncCache = c.Cache
		userCache = c.Cache
	} else {
		logger.Info("redis address is empty, user cache disabled")
	}

	var publisher syncservice.EventPublisher
	if cfg.RabbitMQURL != "" {
		c.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.ch, err = rabbitmq.SetupChannel(c.conn, cfg.Exchange, rabbitmq.GetSyncQueues())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = rabbitmq.NewPublisher(c.ch, cfg.Exchange)
	} else {
		logger.Info("rabbitmq url is empty, sync events disabled")
	}

	if cfg.APIKey == "" {
		logger.Warn("BEAG_API_KEY is not set, remote lookups will fail")
	}

	c.Metrics = metrics.New(nil)
	c.Beag = beag.NewClient(cfg, logger, c.Metrics)
	c.Sync = syncservice.NewSyncService(c.Beag, db, db, syncCache, publisher, c.Metrics, logger)
	c.Users = userservice.NewUserService(db, userCache, c.Sync, cfg.CacheTTL, logger)
	return c, nil
}

// StartConsumer начинает читать очередь запросов на синхронизацию.
// Возвращаемый канал закрывается, когда чтение остановлено отменой ctx и все
// начатые обработчики завершились. Без RabbitMQ канал закрыт сразу.
func (c *Components) StartConsumer(ctx context.Context) (<-chan struct{}, error) {
	if c.ch == nil {
		done := make(chan struct{})
		close(done)
		return done, nil
	}
	return rabbitmq.ConsumeMessages(ctx, c.ch, rabbitmq.QueueSyncRequested, c.log, c.Users.HandleSyncRequest)
}

// Close освобождает все ресурсы. Безопасен для частично собранных Components.
func (c *Components) Close() {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.log.Error("failed to close channel", sl.Err(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Error("failed to close connection", sl.Err(err))
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.log.Error("failed to close cache", sl.Err(err))
		}
	}
	if c.Storage != nil {
		if err := c.Storage.Close(); err != nil {
			c.log.Error("failed to close storage", sl.Err(err))
		}
	}
}

func waitForDB(ctx context.Context, dsn string, logger *slog.Logger) (*repository.Storage, error) {
	var lastErr error
	for attempt := range dbAttempts {
		db, err := repository.New(ctx, dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("database is not ready", slog.Int("attempt", attempt+1), sl.Err(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbDelay):
		}
	}
	return nil, fmt.Errorf("database not ready after retries: %w", lastErr)
}
