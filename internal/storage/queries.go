package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL the repository runs, one method per statement.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Rows mirror the tables one to one.
type (
	TransactionRow struct {
		ID                int64
		Type              string
		AmountCents       int64
		Description       string
		AdditionalNotes   string
		Date              string
		AccountID         int64
		AccountName       string
		SourceAccountID   sql.NullInt64
		SourceAccountName string
	}

	AccountRow struct {
		ID           int64
		Name         string
		BalanceCents int64
		CanDelete    bool
	}

	DescriptionRow struct {
		ID          int64
		Type        string
		Text        string
		Occurrences int64
	}

	SessionRow struct {
		Token    string
		UserJSON string
	}
)

const transactionColumns = `id, type, amount_cents, description, additional_notes, date,
	account_id, account_name, source_account_id, source_account_name`

func scanTransactions(rows *sql.Rows) ([]TransactionRow, error) {
	defer rows.Close()
	var out []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.ID, &r.Type, &r.AmountCents, &r.Description, &r.AdditionalNotes, &r.Date,
			&r.AccountID, &r.AccountName, &r.SourceAccountID, &r.SourceAccountName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date ASC, id ASC`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactionsPage = `SELECT ` + transactionColumns + ` FROM transactions
ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`

func (q *Queries) ListTransactionsPage(ctx context.Context, limit, offset int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsPage, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	var r TransactionRow
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(&r.ID, &r.Type, &r.AmountCents, &r.Description,
		&r.AdditionalNotes, &r.Date, &r.AccountID, &r.AccountName, &r.SourceAccountID, &r.SourceAccountName)
	return r, err
}

const listYears = `SELECT DISTINCT CAST(substr(date, 1, 4) AS INTEGER) AS year FROM transactions ORDER BY year`

func (q *Queries) ListYears(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var y int64
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction, r.ID, r.Type, r.AmountCents, r.Description, r.AdditionalNotes,
		r.Date, r.AccountID, r.AccountName, r.SourceAccountID, r.SourceAccountName)
	return err
}

const listAccounts = `SELECT id, name, balance_cents, can_delete FROM accounts ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountRow
	for rows.Next() {
		var r AccountRow
		if err := rows.Scan(&r.ID, &r.Name, &r.BalanceCents, &r.CanDelete); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertAccount = `INSERT INTO accounts (id, name, balance_cents, can_delete) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, r AccountRow) error {
	_, err := q.db.ExecContext(ctx, insertAccount, r.ID, r.Name, r.BalanceCents, r.CanDelete)
	return err
}

const listDescriptions = `SELECT d.id, d.type, d.text,
	(SELECT COUNT(*) FROM transactions t WHERE t.type = d.type AND t.description = d.text) AS occurrences
FROM descriptions d ORDER BY d.type, d.id`

func (q *Queries) ListDescriptions(ctx context.Context) ([]DescriptionRow, error) {
	rows, err := q.db.QueryContext(ctx, listDescriptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DescriptionRow
	for rows.Next() {
		var r DescriptionRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Text, &r.Occurrences); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertDescription = `INSERT INTO descriptions (id, type, text) VALUES (?, ?, ?)`

func (q *Queries) InsertDescription(ctx context.Context, r DescriptionRow) error {
	_, err := q.db.ExecContext(ctx, insertDescription, r.ID, r.Type, r.Text)
	return err
}

func (q *Queries) ClearMirror(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM transactions", "DELETE FROM accounts", "DELETE FROM descriptions"} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const setRefreshedAt = `INSERT INTO mirror_state (id, refreshed_at) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET refreshed_at = excluded.refreshed_at`

func (q *Queries) SetRefreshedAt(ctx context.Context, at string) error {
	_, err := q.db.ExecContext(ctx, setRefreshedAt, at)
	return err
}

const getRefreshedAt = `SELECT refreshed_at FROM mirror_state WHERE id = 1`

func (q *Queries) GetRefreshedAt(ctx context.Context) (string, error) {
	var at string
	err := q.db.QueryRowContext(ctx, getRefreshedAt).Scan(&at)
	return at, err
}

const upsertSession = `INSERT INTO session (id, token, user_json, updated_at) VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_json = excluded.user_json, updated_at = excluded.updated_at`

func (q *Queries) UpsertSession(ctx context.Context, token, userJSON, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertSession, token, userJSON, updatedAt)
	return err
}

const getSession = `SELECT token, user_json FROM session WHERE id = 1`

func (q *Queries) GetSession(ctx context.Context) (SessionRow, error) {
	var r SessionRow
	err := q.db.QueryRowContext(ctx, getSession).Scan(&r.Token, &r.UserJSON)
	return r, err
}

const deleteSession = `DELETE FROM session`

func (q *Queries) DeleteSession(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteSession)
	return err
}
