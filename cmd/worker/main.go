package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/coffee-export/export-manager/internal/app"
	jobmetrics "github.com/coffee-export/export-manager/internal/jobs"
	"github.com/coffee-export/export-manager/internal/platform/cache"
	"github.com/coffee-export/export-manager/internal/platform/db"
	"github.com/coffee-export/export-manager/internal/shared"
	"github.com/coffee-export/export-manager/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdle})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services := app.NewServices(cfg, pool, redisClient, shared.SystemClock, logger)
	metrics := jobmetrics.NewMetrics(nil)

	reconcile := jobs.NewReconcileLinksJob(services.Invoicing, logger, metrics)
	overdue := jobs.NewOverdueScanJob(services.Invoicing, logger, metrics)
	followUps := jobs.NewFollowUpDigestJob(services.CRM, logger, metrics)

	schedule, err := jobs.DefaultSchedule(time.Now())
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReconcileLinks, Handler: reconcile.Handle},
			{Type: jobs.TaskOverdueScan, Handler: overdue.Handle},
			{Type: jobs.TaskFollowUpDigest, Handler: followUps.Handle},
		},
		Cron: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
