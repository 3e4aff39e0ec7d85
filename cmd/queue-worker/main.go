package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/treumlabs/signalcast/internal/cron"
	"github.com/treumlabs/signalcast/internal/platforms"
	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/db"
	"github.com/treumlabs/signalcast/pkg/logger"
	"github.com/treumlabs/signalcast/pkg/metrics"
	"github.com/treumlabs/signalcast/pkg/migrate"
	"github.com/treumlabs/signalcast/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "queue-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "queue-worker"

	logg = logger.New(logger.Options{
		ServiceName: "queue-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	repo := queue.NewRepository(dbClient.DB())
	governor := queue.NewGovernor(repo, cfg.RateLimits, cfg.Queue.MinGap)
	registry := platforms.NewRegistry(context.Background(), cfg, logg)

	queueService, err := queue.NewService(queue.ServiceParams{
		Repo:     repo,
		Governor: governor,
		Posters:  registry,
		Logger:   logg,
		Metrics:  metrics.NewQueueMetrics(prometheus.DefaultRegisterer),
		Queue:    cfg.Queue,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create queue service", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Worker.LockKey, cfg.Worker.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher lock", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config: cfg,
		Logger: logg,
		Queue:  queueService,
		Lock:   lock,
		DB:     dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create queue worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting queue worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "queue worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "queue worker shutting down gracefully")
}
