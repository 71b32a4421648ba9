package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"conti/internal/amqp"
	"conti/internal/backend"
	"conti/internal/cli"
	gsheet "conti/internal/sheets/google"
	"conti/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume cache invalidations, refresh the SQLite mirror and export to Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	a, err := openApp(ctx, os.Stdout, "")
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger.WithComponent("worker")

	if a.cfg.AMQPURL == "" {
		return errors.New("worker requires AMQP_URL")
	}

	logger.Info("Starting conti worker", "backend", a.cfg.DataBackend)

	opts := []worker.Option{worker.WithLogger(logger)}
	// The sqlite backend reads from the mirror itself, so only the api
	// backend has something to copy into it.
	if a.backend.Mirror != nil && a.cfg.DataBackend == string(backend.APIBackend) {
		opts = append(opts, worker.WithMirror(a.backend.Mirror))
	}
	if a.cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.NewFromConfig(ctx, gsheet.Config{
			SpreadsheetID:      a.cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: a.cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: a.cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return fmt.Errorf("init Google Sheets client: %w", err)
		}
		opts = append(opts, worker.WithExporter(sheetsClient, a.cfg.ExportYears))
		logger.Info("Google Sheets export enabled", "spreadsheet_id", a.cfg.GoogleSpreadsheetID, "years", a.cfg.ExportYears)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	w := worker.NewInvalidationWorker(a.backend.Ledger, opts...)

	amqpClient, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("init AMQP client: %w", err)
	}

	runCtx, done := cli.GracefulShutdown(logger, 15*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
	})

	// A failed startup refresh is retried by the periodic one.
	if err := w.StartupRefresh(runCtx); err != nil {
		logger.Error("Startup refresh failed", "error", err)
	}

	if a.cfg.RefreshInterval > 0 {
		go w.PeriodicRefresh(runCtx, a.cfg.RefreshInterval)
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.ConsumeInvalidations(runCtx, w.HandleInvalidation)
	}()

	select {
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume invalidations: %w", err)
		}
	case <-runCtx.Done():
	}
	cli.WaitForShutdown(runCtx, done)
	return nil
}
