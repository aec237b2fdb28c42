// Package scheduler собирает приложение планировщика жизненного цикла:
// периодические проверки продлений, триалов и потребления.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trading-academy/internal/cache"
	"github.com/magabrotheeeer/trading-academy/internal/config"
	"github.com/magabrotheeeer/trading-academy/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/trading-academy/internal/paymentprovider"
	schedulerservice "github.com/magabrotheeeer/trading-academy/internal/services/scheduler"
	subservice "github.com/magabrotheeeer/trading-academy/internal/services/subscription"
	"github.com/magabrotheeeer/trading-academy/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	cfg              *config.Config
	conn             *amqp.Connection
	ch               *amqp.Channel
	db               *repository.Storage
	logger           *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEventQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	providerClient := paymentprovider.NewClient(
		cfg.ShopID, cfg.SecretKey, cfg.APIURL, cfg.PaymentTimeout)
	publisher := rabbitmq.NewPublisher(ch)

	lifecycleService := subservice.New(db, providerClient, publisher, cacheRedis, logger, cfg.PaymentTimeout)
	schedulerService := schedulerservice.New(db, lifecycleService, logger,
		subservice.RenewalWindow, subservice.SuspendedGrace)

	return &App{
		schedulerService: schedulerService,
		cfg:              cfg,
		conn:             conn,
		ch:               ch,
		db:               db,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает периодические проверки и дожидается завершения контекста.
func (a *App) Run(ctx context.Context) error {
	go a.schedulerService.RunRenewalCheck(ctx, a.cfg.RenewalInterval)
	go a.schedulerService.RunTrialCheck(ctx, a.cfg.TrialInterval)
	go a.schedulerService.RunUsageCheck(ctx, a.cfg.UsageInterval)

	<-ctx.Done()

	a.logger.Info("shutting down lifecycle scheduler")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	_ = a.db.DB.Close()

	return nil
}
