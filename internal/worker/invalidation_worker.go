package worker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/cache"
	"conti/internal/core"
	clog "conti/internal/log"
	"conti/internal/services"
	"conti/internal/sheets"
	"conti/internal/storage"
)

// Mirror receives full ledger snapshots.
type Mirror interface {
	ReplaceSnapshot(ctx context.Context, snap storage.Snapshot) error
}

// InvalidationWorker reacts to invalidation messages by refreshing the local
// mirror and re-exporting the most recent years to the report sheets. Both
// the mirror and the exporter are optional.
type InvalidationWorker struct {
	source      services.Source
	mirror      Mirror
	exporter    sheets.ReportWriter
	exportYears int
	events      *clog.StructuredLogger
}

type Option func(*InvalidationWorker)

func WithMirror(m Mirror) Option {
	return func(w *InvalidationWorker) { w.mirror = m }
}

// WithExporter enables the sheet export of the latest years (at least one).
func WithExporter(e sheets.ReportWriter, years int) Option {
	return func(w *InvalidationWorker) {
		w.exporter = e
		w.exportYears = max(years, 1)
	}
}

// WithLogger sets the logger export failures are reported through.
func WithLogger(logger *clog.Logger) Option {
	return func(w *InvalidationWorker) { w.events = clog.NewStructuredLogger(logger) }
}

func NewInvalidationWorker(source services.Source, opts ...Option) *InvalidationWorker {
	w := &InvalidationWorker{source: source, exportYears: 1}
	for _, opt := range opts {
		opt(w)
	}
	if w.events == nil {
		w.events = clog.NewStructuredLogger(clog.New(clog.DefaultConfig()))
	}
	return w
}

// HandleInvalidation processes one message. An error makes the consumer
// requeue the message.
func (w *InvalidationWorker) HandleInvalidation(ctx context.Context, msg *amqp.InvalidationMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	slog.InfoContext(ctx, "Processing invalidation message",
		"message_id", msg.ID,
		"reason", msg.Reason,
		"tags", msg.Tags)

	if !touchesLedger(msg.Tags) {
		return nil
	}
	return w.refresh(ctx, slices.Contains(msg.Tags, cache.TagTransactions))
}

// StartupRefresh brings the mirror and the sheets up to date before the
// first message arrives, covering anything missed while the worker was down.
func (w *InvalidationWorker) StartupRefresh(ctx context.Context) error {
	start := time.Now()
	if err := w.refresh(ctx, true); err != nil {
		return fmt.Errorf("startup refresh: %w", err)
	}
	slog.InfoContext(ctx, "Startup refresh completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// PeriodicRefresh runs StartupRefresh every interval until ctx is done. It is
// the fallback for lost messages.
func (w *InvalidationWorker) PeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.refresh(ctx, true); err != nil {
				slog.ErrorContext(ctx, "Periodic refresh failed", "error", err)
			}
		}
	}
}

func (w *InvalidationWorker) refresh(ctx context.Context, export bool) error {
	if w.mirror == nil && (w.exporter == nil || !export) {
		return nil
	}

	var snap storage.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if snap.Transactions, err = w.source.ListTransactions(gctx); err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	if w.mirror != nil {
		g.Go(func() error {
			var err error
			if snap.Accounts, err = w.source.ListAccounts(gctx); err != nil {
				return fmt.Errorf("load accounts: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			if snap.Descriptions, err = w.source.ListDescriptions(gctx, false); err != nil {
				return fmt.Errorf("load descriptions: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if w.mirror != nil {
		if err := w.mirror.ReplaceSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("refresh mirror: %w", err)
		}
	}
	if w.exporter != nil && export {
		return w.export(ctx, snap.Transactions)
	}
	return nil
}

func (w *InvalidationWorker) export(ctx context.Context, txs []core.Transaction) error {
	years, err := core.Aggregate(txs)
	if err != nil {
		return fmt.Errorf("aggregate transactions: %w", err)
	}
	if len(years) > w.exportYears {
		years = years[len(years)-w.exportYears:]
	}
	for _, y := range years {
		if _, err := w.exporter.WriteYearReport(ctx, y); err != nil {
			w.events.LogError(ctx, "Sheet export failed", err, clog.ComponentSheets, clog.OpExport,
				clog.NewFields().WithPeriod(y.Year, 0))
			return fmt.Errorf("export year %d: %w", y.Year, err)
		}
	}
	return nil
}

func touchesLedger(tags []cache.Tag) bool {
	for _, t := range tags {
		switch t {
		case cache.TagTransactions, cache.TagTotals, cache.TagDescriptions:
			return true
		}
	}
	return false
}
