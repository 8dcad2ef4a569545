package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/condoflow/condoflow/internal/app"
	"github.com/condoflow/condoflow/internal/billing"
	"github.com/condoflow/condoflow/internal/observability"
	"github.com/condoflow/condoflow/internal/platform/cache"
	"github.com/condoflow/condoflow/internal/platform/db"
	"github.com/condoflow/condoflow/internal/shared"
	"github.com/condoflow/condoflow/jobs"
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

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	chargeLocker := billing.NewChargeLocker(redisClient, cfg.ChargeLockTTL)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, chargeLocker, idempotencyStore)

	overdueJob := jobs.NewOverdueRefreshJob(billingService, logger, metrics)
	cleanupJob := jobs.NewImportKeysCleanupJob(idempotencyStore, logger)

	overdueTask, err := jobs.NewOverdueRefreshTask(jobs.OverdueRefreshPayload{})
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewImportKeysCleanupTask(cfg.ImportKeyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBillingOverdueRefresh, Handler: overdueJob.Handle},
			{Type: jobs.TaskBillingImportKeysCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueRefreshCron, Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
