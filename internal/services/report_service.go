package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger"
)

// Source is the read side the reports are built from.
//
//go:generate mockgen -destination=mocks/mock_source.go -package=mocks conti/internal/services Source,Publisher
type Source interface {
	ledger.TransactionReader
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListDescriptions(ctx context.Context, withOccurrences bool) ([]core.Description, error)
}

// ReportService serves cached ledger reads and the reports derived from them.
// Raw reads are cached by tag; summaries are recomputed on every call.
type ReportService struct {
	source Source
	cache  *cache.QueryCache
}

// NewReportService without a cache still de-duplicates concurrent loads but
// keeps nothing.
func NewReportService(source Source, qc *cache.QueryCache) *ReportService {
	if qc == nil {
		qc = cache.NewQueryCache(0, 0)
	}
	return &ReportService{source: source, cache: qc}
}

// Dashboard is everything the overview page shows in one response.
type Dashboard struct {
	Years    []core.YearSummary `json:"years" yaml:"years"`
	Accounts []core.Account     `json:"accounts" yaml:"accounts"`
	Trend    core.Trend         `json:"trend" yaml:"trend"`
}

func (s *ReportService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return cache.Fetch(ctx, s.cache, "transactions", []cache.Tag{cache.TagTransactions}, s.source.ListTransactions)
}

func (s *ReportService) Accounts(ctx context.Context) ([]core.Account, error) {
	return cache.Fetch(ctx, s.cache, "accounts", []cache.Tag{cache.TagTotals}, s.source.ListAccounts)
}

// Descriptions depends on transactions too when occurrence counts are asked for.
func (s *ReportService) Descriptions(ctx context.Context, withOccurrences bool) ([]core.Description, error) {
	tags := []cache.Tag{cache.TagDescriptions}
	if withOccurrences {
		tags = append(tags, cache.TagTransactions)
	}
	key := "descriptions:" + strconv.FormatBool(withOccurrences)
	return cache.Fetch(ctx, s.cache, key, tags, func(ctx context.Context) ([]core.Description, error) {
		return s.source.ListDescriptions(ctx, withOccurrences)
	})
}

func (s *ReportService) Years(ctx context.Context) ([]int, error) {
	return cache.Fetch(ctx, s.cache, "years", []cache.Tag{cache.TagTransactions}, s.source.ListYears)
}

func (s *ReportService) Page(ctx context.Context, pageIndex, pageSize int) (core.Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return core.Page{}, fmt.Errorf("invalid page %d of size %d", pageIndex, pageSize)
	}
	key := fmt.Sprintf("page:%d:%d", pageIndex, pageSize)
	return cache.Fetch(ctx, s.cache, key, []cache.Tag{cache.TagTransactions}, func(ctx context.Context) (core.Page, error) {
		return s.source.ListPage(ctx, pageIndex, pageSize)
	})
}

// Summaries aggregates the transactions matching f.
func (s *ReportService) Summaries(ctx context.Context, f core.TransactionFilter) ([]core.YearSummary, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return s.aggregate(ctx, f.Apply(txs))
}

func (s *ReportService) aggregate(ctx context.Context, txs []core.Transaction) ([]core.YearSummary, error) {
	years, err := core.Aggregate(txs)
	if err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}
	slog.DebugContext(ctx, "Aggregated transactions", "transactions", len(txs), "years", len(years))
	return years, nil
}

// DescriptionTotals is the per-description view of one year. A year without
// transactions yields empty totals rather than an error.
func (s *ReportService) DescriptionTotals(ctx context.Context, year int, sortByTotal bool) (core.YearDescriptionTotals, error) {
	years, err := s.Summaries(ctx, core.TransactionFilter{Years: []int{year}})
	if err != nil {
		return core.YearDescriptionTotals{}, err
	}
	if len(years) == 0 {
		return core.YearDescriptionTotals{Year: year, Earnings: []core.DescriptionTotal{}, Expenses: []core.DescriptionTotal{}}, nil
	}
	out := core.DescriptionTotals(years[0])
	if sortByTotal {
		out.Earnings = core.SortByTotalDesc(out.Earnings)
		out.Expenses = core.SortByTotalDesc(out.Expenses)
	}
	return out, nil
}

func (s *ReportService) Trend(ctx context.Context) (core.Trend, error) {
	years, err := s.Summaries(ctx, core.TransactionFilter{})
	if err != nil {
		return core.Trend{}, err
	}
	return core.BuildTrend(years), nil
}

// Dashboard loads transactions and accounts concurrently. The trend always
// covers every year; the summaries honour f.
func (s *ReportService) Dashboard(ctx context.Context, f core.TransactionFilter) (Dashboard, error) {
	var (
		txs      []core.Transaction
		accounts []core.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.Transactions(gctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		accounts, err = s.Accounts(gctx)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	all, err := s.aggregate(ctx, txs)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Years: all, Accounts: accounts, Trend: core.BuildTrend(all)}
	if !f.IsEmpty() {
		if d.Years, err = s.aggregate(ctx, f.Apply(txs)); err != nil {
			return Dashboard{}, err
		}
	}
	return d, nil
}
