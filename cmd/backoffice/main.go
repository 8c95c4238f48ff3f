package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/innkeeper/backoffice/internal/app"
	"github.com/innkeeper/backoffice/internal/console"
	"github.com/innkeeper/backoffice/internal/observability"
	"github.com/innkeeper/backoffice/internal/pages"
	"github.com/innkeeper/backoffice/internal/platform/cache"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
	"github.com/innkeeper/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	// Without Redis, pages still fall back to retained and seed data.
	var redisClient *redis.Client
	if rc, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, snapshots disabled", slog.Any("error", err))
	} else {
		redisClient = rc
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	set := pages.New(pages.Deps{
		Client:         apiClient,
		Redis:          redisClient,
		SnapshotTTL:    cfg.SnapshotTTL,
		PageSize:       cfg.PageSize,
		SearchDebounce: cfg.SearchDebounce,
		Logger:         logger,
		Observer:       metrics,
	})

	registry := console.NewRegistry(set.Catalog, cfg.WorkspaceTTL, logger)
	registry.ReportTo(metrics.SetWorkspaces)
	go registry.Run(ctx)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
		if err != nil {
			logger.Error("parse redis address", slog.Any("error", err))
			os.Exit(1)
		}
		inspector := asynq.NewInspector(redisOpt)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ConsoleHandler: console.NewHandler(logger, registry, cfg.IsProduction()),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api", apiClient.BaseURL()),
			slog.Any("pages", set.Catalog.Names()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	registry.Close()
}
