package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cli"
	applog "budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting budget-worker")

	if cfg.GoogleSpreadsheetID == "" {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the export worker")
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sheetsClient, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSummarySheet)
	if err != nil {
		return fmt.Errorf("google sheets: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSummarySheet)

	exporter := worker.NewExportWorker(store.Store, sheetsClient, cfg.ExportConcurrency)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumePeriodEvents(gctx, exporter.HandlePeriodEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic export only")
	}

	g.Go(func() error {
		exportLoop(gctx, logger, exporter, cfg.ExportInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}

// exportLoop exports everything at startup and then on every tick.
func exportLoop(ctx context.Context, logger *applog.Logger, exporter *worker.ExportWorker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := exporter.ExportAll(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Periodic export failed", applog.FieldError, err, "exported", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
