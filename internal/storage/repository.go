package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/session"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository is a local, read-only mirror of the ledger plus the
// persisted session. The mirror is replaced wholesale by ReplaceSnapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// Snapshot is the full ledger state written to the mirror in one go.
type Snapshot struct {
	Transactions []core.Transaction
	Accounts     []core.Account
	Descriptions []core.Description
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceSnapshot swaps the mirrored ledger for snap atomically.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.ClearMirror(ctx); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	for _, a := range snap.Accounts {
		if err := q.InsertAccount(ctx, AccountRow{ID: a.ID, Name: a.Name, BalanceCents: a.Balance.Cents, CanDelete: a.CanDelete}); err != nil {
			return fmt.Errorf("insert account %d: %w", a.ID, err)
		}
	}
	for _, d := range snap.Descriptions {
		if err := q.InsertDescription(ctx, DescriptionRow{ID: d.ID, Type: string(d.Type), Text: d.Text}); err != nil {
			return fmt.Errorf("insert description %d: %w", d.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		if err := q.InsertTransaction(ctx, transactionToRow(t)); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}
	if err := q.SetRefreshedAt(ctx, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record refresh time: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "SQLite mirror refreshed",
		"transactions", len(snap.Transactions),
		"accounts", len(snap.Accounts),
		"descriptions", len(snap.Descriptions))
	return nil
}

// RefreshedAt returns when the mirror was last replaced; zero if never.
func (r *SQLiteRepository) RefreshedAt(ctx context.Context) (time.Time, error) {
	at, err := r.queries.GetRefreshedAt(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get refresh time: %w", err)
	}
	return time.Parse(time.RFC3339, at)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) ListPage(ctx context.Context, pageIndex, pageSize int) (core.Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return core.Page{}, fmt.Errorf("invalid page %d/%d", pageIndex, pageSize)
	}
	total, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return core.Page{}, fmt.Errorf("count transactions: %w", err)
	}
	rows, err := r.queries.ListTransactionsPage(ctx, int64(pageSize), int64(pageIndex)*int64(pageSize))
	if err != nil {
		return core.Page{}, fmt.Errorf("list transactions page: %w", err)
	}
	txs, err := rowsToTransactions(rows)
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Transactions: txs, TotalCount: int(total), PageIndex: pageIndex, PageSize: pageSize}, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return rowToTransaction(row)
}

func (r *SQLiteRepository) ListYears(ctx context.Context) ([]int, error) {
	years, err := r.queries.ListYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	out := make([]int, len(years))
	for i, y := range years {
		out[i] = int(y)
	}
	return out, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, a := range rows {
		out[i] = core.Account{ID: a.ID, Name: a.Name, Balance: core.Money{Cents: a.BalanceCents}, CanDelete: a.CanDelete}
	}
	return out, nil
}

func (r *SQLiteRepository) ListDescriptions(ctx context.Context, withOccurrences bool) ([]core.Description, error) {
	rows, err := r.queries.ListDescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	out := make([]core.Description, len(rows))
	for i, d := range rows {
		out[i] = core.Description{ID: d.ID, Type: core.OperationType(d.Type), Text: d.Text}
		if withOccurrences {
			out[i].Occurrences = int(d.Occurrences)
		}
	}
	return out, nil
}

// The mirror never accepts writes; they go to the backend.

func (r *SQLiteRepository) AddTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, ledger.ErrReadOnly
}

func (r *SQLiteRepository) UpdateTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, ledger.ErrReadOnly
}

func (r *SQLiteRepository) DeleteTransaction(context.Context, int64) error { return ledger.ErrReadOnly }

func (r *SQLiteRepository) DeleteTransactions(context.Context, []core.Transaction) error {
	return ledger.ErrReadOnly
}

func (r *SQLiteRepository) UpdateAccounts(context.Context, []core.Account) ([]core.Account, error) {
	return nil, ledger.ErrReadOnly
}

func (r *SQLiteRepository) UpdateDescription(context.Context, core.Description) (core.Description, error) {
	return core.Description{}, ledger.ErrReadOnly
}

func (r *SQLiteRepository) DeleteDescription(context.Context, int64) error { return ledger.ErrReadOnly }

// SaveSession implements session.Persister
func (r *SQLiteRepository) SaveSession(ctx context.Context, s session.State) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.queries.UpsertSession(ctx, s.Token, string(user), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession implements session.Persister
func (r *SQLiteRepository) LoadSession(ctx context.Context) (session.State, error) {
	row, err := r.queries.GetSession(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return session.State{}, session.ErrNoSession
	}
	if err != nil {
		return session.State{}, fmt.Errorf("load session: %w", err)
	}
	st := session.State{Token: row.Token}
	if err := json.Unmarshal([]byte(row.UserJSON), &st.User); err != nil {
		return session.State{}, fmt.Errorf("decode stored user: %w", err)
	}
	return st, nil
}

// ClearSession implements session.Persister
func (r *SQLiteRepository) ClearSession(ctx context.Context) error {
	if err := r.queries.DeleteSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func transactionToRow(t core.Transaction) TransactionRow {
	row := TransactionRow{
		ID:              t.ID,
		Type:            string(t.Type),
		AmountCents:     t.Amount.Cents,
		Description:     t.Description,
		AdditionalNotes: t.AdditionalNotes,
		Date:            t.Date.Format(dateLayout),
		AccountID:       t.Account.ID,
		AccountName:     t.Account.Name,
	}
	if t.SourceAccount != nil {
		row.SourceAccountID = sql.NullInt64{Int64: t.SourceAccount.ID, Valid: true}
		row.SourceAccountName = t.SourceAccount.Name
	}
	return row
}

func rowToTransaction(row TransactionRow) (core.Transaction, error) {
	d, err := time.Parse(dateLayout, row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad stored date %q: %w", row.ID, row.Date, err)
	}
	t := core.Transaction{
		ID:              row.ID,
		Type:            core.OperationType(row.Type),
		Amount:          core.Money{Cents: row.AmountCents},
		Description:     row.Description,
		AdditionalNotes: row.AdditionalNotes,
		Date:            core.Date{Time: d},
		Account:         core.AccountRef{ID: row.AccountID, Name: row.AccountName},
	}
	if row.SourceAccountID.Valid {
		t.SourceAccount = &core.AccountRef{ID: row.SourceAccountID.Int64, Name: row.SourceAccountName}
	}
	return t, nil
}

func rowsToTransactions(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var (
	_ ledger.Ledger     = (*SQLiteRepository)(nil)
	_ session.Persister = (*SQLiteRepository)(nil)
)
