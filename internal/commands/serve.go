package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"conti/internal/amqp"
	"conti/internal/cache"
	"conti/internal/cli"
	apphttp "conti/internal/http"
	"conti/internal/services"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON report API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := openApp(ctx, os.Stdout, "")
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	logger.Info("Starting conti server", "port", a.cfg.Port, "backend", a.cfg.DataBackend)

	// AMQP is optional: without it other processes just miss our invalidations.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if a.cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", a.cfg.AMQPExchange, "queue", a.cfg.AMQPQueue)
		}
	}

	cacheManager := cache.NewManager()
	cacheManager.Register(a.cache)
	cacheManager.StartCleanup(10 * time.Minute)

	txs := services.NewTransactionService(a.backend.Ledger, a.cache, publisher)
	srv := apphttp.NewServer(":"+a.cfg.Port, logger, a.reports, txs,
		apphttp.WithCache(a.cache),
		apphttp.WithPageSize(a.cfg.PageSize),
		apphttp.WithReadiness(func(ctx context.Context) error {
			_, err := a.backend.Ledger.ListYears(ctx)
			return err
		}),
	)

	shutdownCtx, done := cli.GracefulShutdown(logger, 15*time.Second, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
	}
	cli.WaitForShutdown(shutdownCtx, done)
	return nil
}
