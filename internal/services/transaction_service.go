package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger"
)

// Publisher broadcasts cache invalidations to other processes.
type Publisher interface {
	PublishInvalidation(ctx context.Context, msg *amqp.InvalidationMessage) error
}

var ErrMissingID = errors.New("missing id")

// TransactionService validates and applies ledger mutations. After every
// successful write the affected cache tags are invalidated locally and the
// invalidation is published; a publish failure is logged, not returned,
// since the write itself already succeeded.
type TransactionService struct {
	ledger    ledger.Ledger
	cache     *cache.QueryCache
	publisher Publisher
}

// NewTransactionService accepts a nil publisher for single-process use.
func NewTransactionService(l ledger.Ledger, qc *cache.QueryCache, publisher Publisher) *TransactionService {
	return &TransactionService{ledger: l, cache: qc, publisher: publisher}
}

func (s *TransactionService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = 0
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	saved, err := s.ledger.AddTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction added",
		"transaction_id", saved.ID,
		"type", saved.Type.Label(),
		"amount", saved.Amount.String())
	s.invalidate(ctx, "transaction:add", cache.TagTransactions, cache.TagTotals, cache.TagDescriptions)
	return saved, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID <= 0 {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", ErrMissingID)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	saved, err := s.ledger.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	slog.InfoContext(ctx, "Transaction updated", "transaction_id", saved.ID)
	s.invalidate(ctx, "transaction:update", cache.TagTransactions, cache.TagTotals, cache.TagDescriptions)
	return saved, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id)
	s.invalidate(ctx, "transaction:delete", cache.TagTransactions, cache.TagTotals)
	return nil
}

// DeleteTransactions is a no-op for an empty list. Every item needs an ID.
func (s *TransactionService) DeleteTransactions(ctx context.Context, items []core.Transaction) error {
	if len(items) == 0 {
		return nil
	}
	for i, item := range items {
		if item.ID <= 0 {
			return fmt.Errorf("delete transactions: item %d: %w", i, ErrMissingID)
		}
	}
	if err := s.ledger.DeleteTransactions(ctx, items); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions deleted", "count", len(items))
	s.invalidate(ctx, "transaction:delete-list", cache.TagTransactions, cache.TagTotals)
	return nil
}

func (s *TransactionService) UpdateAccounts(ctx context.Context, accounts []core.Account) ([]core.Account, error) {
	for _, a := range accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("validate account %d: %w", a.ID, core.ErrEmptyDescription)
		}
	}
	saved, err := s.ledger.UpdateAccounts(ctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("update accounts: %w", err)
	}
	// Transactions carry account names.
	s.invalidate(ctx, "totals:update", cache.TagTotals, cache.TagTransactions)
	return saved, nil
}

func (s *TransactionService) UpdateDescription(ctx context.Context, d core.Description) (core.Description, error) {
	if err := d.Validate(); err != nil {
		return core.Description{}, fmt.Errorf("validate description: %w", err)
	}
	saved, err := s.ledger.UpdateDescription(ctx, d)
	if err != nil {
		return core.Description{}, fmt.Errorf("update description: %w", err)
	}
	s.invalidate(ctx, "description:update", cache.TagDescriptions, cache.TagTransactions)
	return saved, nil
}

func (s *TransactionService) DeleteDescription(ctx context.Context, id int64) error {
	if err := s.ledger.DeleteDescription(ctx, id); err != nil {
		return fmt.Errorf("delete description %d: %w", id, err)
	}
	s.invalidate(ctx, "description:delete", cache.TagDescriptions)
	return nil
}

func (s *TransactionService) invalidate(ctx context.Context, reason string, tags ...cache.Tag) {
	if s.cache != nil {
		s.cache.Invalidate(tags...)
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping invalidation message", "reason", reason)
		return
	}
	if err := s.publisher.PublishInvalidation(ctx, amqp.NewInvalidationMessage(reason, tags...)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish invalidation message", "reason", reason, "error", err)
	}
}
