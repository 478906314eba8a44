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

	"github.com/sitetrack-erp/sitetrack/internal/app"
	"github.com/sitetrack-erp/sitetrack/internal/observability"
	"github.com/sitetrack-erp/sitetrack/internal/platform/cache"
	"github.com/sitetrack-erp/sitetrack/internal/platform/db"
	"github.com/sitetrack-erp/sitetrack/internal/posting"
	"github.com/sitetrack-erp/sitetrack/internal/register"
	"github.com/sitetrack-erp/sitetrack/internal/shared"
	"github.com/sitetrack-erp/sitetrack/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, aggregation cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registerCache := register.NewCache(redisClient, cfg.RegisterCacheTTL)
	registerCache.ListenForInvalidation(ctx)

	registerStore := register.NewStore(pool)
	aggregator := register.NewAggregator(registerStore, registerCache)
	registerHandler := register.NewHandler(logger, aggregator)

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	postingRepo := posting.NewRepository(pool, cfg.PostingLockTimeout)
	postingService := posting.NewService(postingRepo, auditLogger, aggregator, metrics)
	postingHandler := posting.NewHandler(logger, postingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		PostingHandler:  postingHandler,
		RegisterHandler: registerHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
}
