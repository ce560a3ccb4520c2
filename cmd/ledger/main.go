package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/export"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil))
	logger := cli.SetupLogger(cfg)

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	reports := cli.NewReportService(cfg, res.Source)

	cacheManager := cache.NewManager()
	if c := reports.SnapshotCache(); c != nil {
		cacheManager.Register(c)
		cacheManager.StartCleanup(time.Minute)
	}

	// With a broker export jobs are queued for the worker, otherwise they
	// run inside the request.
	var publisher services.JobPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("Export jobs are queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	exports := services.NewExportService(reports, publisher, cli.InitExportTargets(ctx, logger, cfg)...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Config{
		Reports:       reports,
		Exports:       exports,
		DefaultTarget: export.TargetName,
		Logger:        logger,
		Ready: func(ctx context.Context) error {
			_, err := res.Source.ListProjects(ctx)
			return err
		},
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting ledger server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
