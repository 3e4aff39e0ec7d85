package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/treumlabs/signalcast/api/controllers"
	"github.com/treumlabs/signalcast/api/routes"
	"github.com/treumlabs/signalcast/internal/platforms"
	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/db"
	"github.com/treumlabs/signalcast/pkg/logger"
	"github.com/treumlabs/signalcast/pkg/metrics"
	"github.com/treumlabs/signalcast/pkg/migrate"
	"github.com/treumlabs/signalcast/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	handler := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		Queue:  queueService,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Registry: prometheus.DefaultGatherer,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
