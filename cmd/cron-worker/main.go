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
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	cleanupJob, err := cron.NewQueueCleanupJob(cron.QueueCleanupJobParams{
		Logger:        logg,
		Queue:         queueService,
		RetentionDays: cfg.Queue.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup job", err)
		os.Exit(1)
	}
	healthJob, err := cron.NewQueueHealthJob(cron.QueueHealthJobParams{
		Logger: logg,
		Queue:  queueService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob, healthJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
