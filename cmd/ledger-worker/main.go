package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil))
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentWorker)

	if cfg.AMQPURL == "" && !cfg.MirrorEnabled() {
		logger.Error("Nothing to do: set AMQP_URL to run export jobs or MIRROR_INTERVAL and MIRROR_DB_PATH to mirror the backend")
		os.Exit(1)
	}

	logger.Info("Starting ledger-worker")

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	var wg sync.WaitGroup

	// Export jobs
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		// Jobs are run here, so the service has no publisher.
		reports := cli.NewReportService(cfg, res.Source)
		exports := services.NewExportService(reports, nil, cli.InitExportTargets(ctx, logger, cfg)...)
		exportWorker := worker.NewExportWorker(exports, time.Local, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := amqpClient.ConsumeExportJobs(ctx, exportWorker.Handle)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
				os.Exit(1)
			}
		}()
	} else {
		logger.Info("Skipping export jobs - no AMQP_URL provided")
	}

	// SQLite mirror
	if cfg.MirrorEnabled() {
		repo := cli.InitSQLite(logger, cfg.MirrorDBPath)
		defer repo.Close()

		// The mirror always reads through to the backend.
		loader := services.NewReportService(res.Source, services.ReportOptions{FetchTimeout: cfg.FetchTimeout})
		mirror := worker.NewMirrorWorker(loader, repo, cfg.MirrorInterval, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			mirror.Run(ctx, cfg.MirrorInterval)
		}()
	} else {
		logger.Info("Skipping SQLite mirror - MIRROR_INTERVAL not set")
	}

	cli.WaitForShutdown(ctx, done)
	wg.Wait()
	logger.Info("Worker stopped")
}
