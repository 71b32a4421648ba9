// Package ledger defines the ports to the transaction store. The REST client,
// the SQLite mirror and the in-memory store implement them.
package ledger

import (
	"context"
	"errors"

	"conti/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a mutation would break a reference, e.g.
	// deleting a description still used by transactions.
	ErrConflict = errors.New("conflict")
	ErrReadOnly = errors.New("ledger is read-only")
)

// Ports for outbound adapters.
type (
	TransactionReader interface {
		// ListTransactions returns every transaction, oldest first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// ListPage returns one page of the listing, newest first.
		ListPage(ctx context.Context, pageIndex, pageSize int) (core.Page, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListYears(ctx context.Context) ([]int, error)
	}

	TransactionWriter interface {
		AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
		// DeleteTransactions removes a batch. The backend identifies each item by
		// ID but also wants its type, amount and accounts.
		DeleteTransactions(ctx context.Context, items []core.Transaction) error
	}

	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		// UpdateAccounts upserts; accounts with ID 0 are created.
		UpdateAccounts(ctx context.Context, accounts []core.Account) ([]core.Account, error)
	}

	DescriptionStore interface {
		ListDescriptions(ctx context.Context, withOccurrences bool) ([]core.Description, error)
		UpdateDescription(ctx context.Context, d core.Description) (core.Description, error)
		DeleteDescription(ctx context.Context, id int64) error
	}

	// Ledger is the full read/write surface a backend provides.
	Ledger interface {
		TransactionReader
		TransactionWriter
		AccountStore
		DescriptionStore
	}
)

// ApplyBalances returns accounts with the balance effect of txs applied
// (sign = 1) or reverted (sign = -1). Unknown account IDs are ignored.
func ApplyBalances(accounts []core.Account, txs []core.Transaction, sign int64) []core.Account {
	out := append([]core.Account(nil), accounts...)
	index := make(map[int64]int, len(out))
	for i, a := range out {
		index[a.ID] = i
	}
	move := func(id, cents int64) {
		if i, ok := index[id]; ok {
			out[i].Balance.Cents += sign * cents
		}
	}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			move(tx.Account.ID, tx.Amount.Cents)
		case core.Expense:
			move(tx.Account.ID, -tx.Amount.Cents)
		case core.Withdrawal:
			move(tx.Account.ID, tx.Amount.Cents)
			if tx.SourceAccount != nil {
				move(tx.SourceAccount.ID, -tx.Amount.Cents)
			}
		}
	}
	return out
}
