package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/innkeeper/backoffice/internal/app"
	jobmetrics "github.com/innkeeper/backoffice/internal/jobs"
	"github.com/innkeeper/backoffice/internal/pages"
	"github.com/innkeeper/backoffice/internal/platform/cache"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
	"github.com/innkeeper/backoffice/jobs"
)

// warmupSchedule refreshes every snapshot twice an hour.
const warmupSchedule = "*/30 * * * *"

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

	apiClient, err := restclient.NewClient(cfg.APIBaseURL,
		restclient.WithTimeout(cfg.APITimeout),
		restclient.WithLogger(logger),
	)
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

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

	set := pages.New(pages.Deps{
		Client:      apiClient,
		Redis:       redisClient,
		SnapshotTTL: cfg.SnapshotTTL,
		Logger:      logger,
	})
	warmupJob := jobs.NewSnapshotWarmupJob(set.Warmers, logger, jobmetrics.NewMetrics(nil))

	warmupTask, err := jobs.NewSnapshotWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: warmupSchedule, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
