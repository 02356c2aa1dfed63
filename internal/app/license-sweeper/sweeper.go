// Package licensesweeper собирает фоновый процесс пересчёта статусов лицензий.
package licensesweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/license-reconciler/internal/cache"
	"github.com/magabrotheeeer/license-reconciler/internal/config"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
	"github.com/magabrotheeeer/license-reconciler/internal/services/sweeper"
	"github.com/magabrotheeeer/license-reconciler/internal/storage/repository"
)

// App фоновый процесс.
type App struct {
	sweeper  *sweeper.Service
	interval time.Duration
	conn     *amqp.Connection
	ch       *amqp.Channel
	db       *repository.Storage
	cache    *cache.Cache
	logger   *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New подключается к брокеру, базе и кэшу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetLicenseQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	// Кэш необязателен: без него снимки просто доживут до своего TTL.
	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Warn("cache not initialized, snapshots will expire by ttl", sl.Err(err))
	}

	publisher := rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
	var licenseCache sweeper.LicenseCache
	if cacheRedis != nil {
		licenseCache = cacheRedis
	}

	return &App{
		sweeper:  sweeper.New(logger, db, publisher, licenseCache, cfg.Sweeper.BatchSize),
		interval: cfg.Sweeper.Interval,
		conn:     conn,
		ch:       ch,
		db:       db,
		cache:    cacheRedis,
		logger:   logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run пересчитывает статусы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Run(ctx, a.interval)

	a.logger.Info("shutting down license sweeper")
	closeResources(a.ch, a.conn, a.logger)
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
