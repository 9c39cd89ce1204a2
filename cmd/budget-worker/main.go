package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wishbudget/internal/amqp"
	"wishbudget/internal/cli"
	"wishbudget/internal/log"
	"wishbudget/internal/services"
	"wishbudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting budget-worker", "queue", cfg.AMQPQueue, "ledger_backend", cfg.LedgerBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the budget worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledger, exports, err := cli.InitLedger(context.Background(), logger.WithComponent(log.ComponentLedger), cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err)
		os.Exit(1)
	}

	// The worker recomputes budgets itself; it never publishes.
	budgets := services.NewBudgetService(repo, repo, nil, ledger)
	alerts := services.NewAlertProcessor(budgets, repo)

	// Exports are only worth scheduling when they leave the process.
	var (
		queue      worker.LedgerQueue
		ledgerSync *services.LedgerSyncProcessor
	)
	if exports {
		ledgerSync = services.NewLedgerSyncProcessor(budgets, services.LedgerSyncConfig{
			PollInterval: cfg.LedgerSyncInterval,
			BatchSize:    cfg.LedgerSyncBatchSize,
		})
		queue = ledgerSync
	} else {
		logger.Info("Ledger sync disabled - memory backend")
	}
	budgetWorker := worker.NewBudgetWorker(alerts, queue)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if ledgerSync == nil {
			return
		}
		if err := ledgerSync.Stop(ctx); err != nil {
			logger.Error("Ledger sync shutdown error", "error", err)
			return
		}
		if pending := ledgerSync.Pending(); pending > 0 {
			logger.Info("Flushing pending ledger exports", "pending", pending)
			ledgerSync.ProcessBatch(ctx)
		}
	})

	if ledgerSync != nil {
		if err := ledgerSync.Start(ctx); err != nil {
			logger.Error("Failed to start ledger sync", "error", err)
			os.Exit(1)
		}
	}

	err = amqpClient.ConsumeBudgetChanged(ctx, budgetWorker.HandleBudgetChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
