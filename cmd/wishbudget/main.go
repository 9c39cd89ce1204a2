package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wishbudget/internal/amqp"
	"wishbudget/internal/cache"
	"wishbudget/internal/cli"
	apphttp "wishbudget/internal/http"
	"wishbudget/internal/log"
	"wishbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting wishbudget", "port", cfg.Port, "ledger_backend", cfg.LedgerBackend)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	goals := services.NewCachedGoals(repo, cfg.GoalCacheSize, cfg.GoalCacheTTL)
	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
	janitor.Register(goals)
	janitor.Start(context.Background(), time.Minute)

	// The publisher stays a nil interface without AMQP so the service skips
	// publishing altogether.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, budget alerts are disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - budget changes will not be published")
	}

	ledger, _, err := cli.InitLedger(context.Background(), logger.WithComponent(log.ComponentLedger), cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err)
		os.Exit(1)
	}

	budgets := services.NewBudgetService(repo, goals, publisher, ledger)
	srv := apphttp.NewServer(budgets, apphttp.Options{
		Addr:               ":" + cfg.Port,
		DefaultLocale:      cfg.DefaultLocale,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              repo.Ping,
		CacheStats:         goals.Stats,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		janitor.Stop()
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
