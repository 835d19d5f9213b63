package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kunal-ak23/university-tracker-sub000/internal/config"
	"github.com/kunal-ak23/university-tracker-sub000/internal/events"
	"github.com/kunal-ak23/university-tracker-sub000/internal/infra"
	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
	"github.com/kunal-ak23/university-tracker-sub000/internal/logging"
	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/routes"
	"github.com/kunal-ak23/university-tracker-sub000/internal/server"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	var sources source.Repository
	var store ledger.Store
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		sourceRepo := source.NewPostgresRepository(db)
		if err := sourceRepo.Migrate(ctx); err != nil {
			logger.Error("migrate source tables", "error", err)
			os.Exit(1)
		}
		ledgerStore := ledger.NewPostgresStore(db)
		if err := ledgerStore.Migrate(ctx); err != nil {
			logger.Error("migrate ledger tables", "error", err)
			os.Exit(1)
		}
		sources, store = sourceRepo, ledgerStore
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		sources = source.NewMemoryRepository()
		store = ledger.NewMemoryStore()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set; event intake runs without idempotency cache")
	}

	notifier := notification.NewLoggerNotifier(logger)
	svc := ledger.NewService(sources, store, notifier, logger)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	consumerErrCh := make(chan error, 1)
	if len(cfg.KafkaBrokers) > 0 {
		handler := events.NewHandler(sources, svc, logger)
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, handler, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Warn("close kafka consumer", "error", err)
			}
		}()
		go func() {
			consumerErrCh <- consumer.Run(consumerCtx)
		}()
		logger.Info("kafka consumer started", "topic", cfg.KafkaTopic, "group_id", cfg.KafkaGroupID)
	} else {
		logger.Warn("KAFKA_BROKERS not set; events arrive over HTTP only")
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Sources:  sources,
		Store:    store,
		Service:  svc,
		Notifier: notifier,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	case err := <-consumerErrCh:
		if err != nil {
			logger.Error("kafka consumer error", "error", err)
			os.Exit(1)
		}
		logger.Info("kafka consumer stopped")
	}

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
