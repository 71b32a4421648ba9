package memory

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/schema"
)

// Store is an in-process ledger used for local runs, demos and tests.
type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	accounts []core.Account
	descs    []core.Description
	nextTx   int64
	nextAcc  int64
	nextDesc int64
}

func New(txs []core.Transaction, accounts []core.Account, descs []core.Description) *Store {
	s := &Store{
		txs:      append([]core.Transaction(nil), txs...),
		accounts: append([]core.Account(nil), accounts...),
		descs:    append([]core.Description(nil), descs...),
	}
	for _, tx := range s.txs {
		s.nextTx = max(s.nextTx, tx.ID)
	}
	for _, a := range s.accounts {
		s.nextAcc = max(s.nextAcc, a.ID)
	}
	for _, d := range s.descs {
		s.nextDesc = max(s.nextDesc, d.ID)
	}
	return s
}

type seedFile struct {
	Transactions json.RawMessage `json:"transactions"`
	Totals       json.RawMessage `json:"totals"`
	Descriptions json.RawMessage `json:"descriptions"`
}

// NewFromFile seeds a store from a JSON file in the backend wire format:
// either a bare transaction array or an object with "transactions",
// "totals" and "descriptions". Every section passes schema validation.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return NewFromJSON(data)
}

func NewFromJSON(data []byte) (*Store, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		txs, err := schema.ParseTransactions(data)
		if err != nil {
			return nil, fmt.Errorf("parse seed transactions: %w", err)
		}
		return New(txs, nil, nil), nil
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	var (
		txs      []core.Transaction
		accounts []core.Account
		descs    schema.Descriptions
		err      error
	)
	if len(seed.Transactions) > 0 {
		if txs, err = schema.ParseTransactions(seed.Transactions); err != nil {
			return nil, fmt.Errorf("parse seed transactions: %w", err)
		}
	}
	if len(seed.Totals) > 0 {
		if accounts, err = schema.ParseAccounts(seed.Totals); err != nil {
			return nil, fmt.Errorf("parse seed totals: %w", err)
		}
	}
	if len(seed.Descriptions) > 0 {
		if descs, err = schema.ParseDescriptions(seed.Descriptions); err != nil {
			return nil, fmt.Errorf("parse seed descriptions: %w", err)
		}
	}
	return New(txs, accounts, descs.All()), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(), nil
}

func (s *Store) sortedLocked() []core.Transaction {
	out := append([]core.Transaction(nil), s.txs...)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) ListPage(_ context.Context, pageIndex, pageSize int) (core.Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return core.Page{}, fmt.Errorf("invalid page %d/%d", pageIndex, pageSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sortedLocked()
	slices.Reverse(all)
	start := min(pageIndex*pageSize, len(all))
	end := min(start+pageSize, len(all))
	return core.Page{
		Transactions: all[start:end],
		TotalCount:   len(all),
		PageIndex:    pageIndex,
		PageSize:     pageSize,
	}, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	return s.txs[i], nil
}

func (s *Store) ListYears(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var years []int
	for _, tx := range s.txs {
		if !slices.Contains(years, tx.Date.Year()) {
			years = append(years, tx.Date.Year())
		}
	}
	slices.Sort(years)
	return years, nil
}

// AddTransaction assigns an ID, moves account balances and registers a new
// description label on first use.
func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAccountsLocked(tx); err != nil {
		return core.Transaction{}, err
	}
	s.nextTx++
	tx.ID = s.nextTx
	s.txs = append(s.txs, tx)
	s.accounts = ledger.ApplyBalances(s.accounts, []core.Transaction{tx}, 1)
	s.registerDescriptionLocked(tx)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(tx.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, ledger.ErrNotFound)
	}
	if err := s.checkAccountsLocked(tx); err != nil {
		return core.Transaction{}, err
	}
	s.accounts = ledger.ApplyBalances(s.accounts, []core.Transaction{s.txs[i]}, -1)
	s.txs[i] = tx
	s.accounts = ledger.ApplyBalances(s.accounts, []core.Transaction{tx}, 1)
	s.registerDescriptionLocked(tx)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	s.accounts = ledger.ApplyBalances(s.accounts, []core.Transaction{s.txs[i]}, -1)
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

// DeleteTransactions removes every listed transaction or none of them. Items
// are matched by ID; the stored copy decides the balance reversal.
func (s *Store) DeleteTransactions(_ context.Context, items []core.Transaction) error {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.txIndex(id) < 0 {
			return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
		}
	}
	var removed []core.Transaction
	s.txs = slices.DeleteFunc(s.txs, func(tx core.Transaction) bool {
		if slices.Contains(ids, tx.ID) {
			removed = append(removed, tx)
			return true
		}
		return false
	})
	s.accounts = ledger.ApplyBalances(s.accounts, removed, -1)
	return nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountsLocked(), nil
}

// accountsLocked derives CanDelete from whether any transaction references
// the account.
func (s *Store) accountsLocked() []core.Account {
	used := map[int64]bool{}
	for _, tx := range s.txs {
		used[tx.Account.ID] = true
		if tx.SourceAccount != nil {
			used[tx.SourceAccount.ID] = true
		}
	}
	out := append([]core.Account(nil), s.accounts...)
	for i := range out {
		out[i].CanDelete = !used[out[i].ID]
	}
	return out
}

func (s *Store) UpdateAccounts(_ context.Context, accounts []core.Account) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("account %d: empty name", a.ID)
		}
		if a.ID > 0 && s.accountIndex(a.ID) < 0 {
			return nil, fmt.Errorf("account %d: %w", a.ID, ledger.ErrNotFound)
		}
	}
	for _, a := range accounts {
		if a.ID == 0 {
			s.nextAcc++
			a.ID = s.nextAcc
			s.accounts = append(s.accounts, a)
			continue
		}
		s.accounts[s.accountIndex(a.ID)] = a
	}
	return s.accountsLocked(), nil
}

func (s *Store) ListDescriptions(_ context.Context, withOccurrences bool) ([]core.Description, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Description(nil), s.descs...)
	for i := range out {
		out[i].Occurrences = 0
		if withOccurrences {
			out[i].Occurrences = s.occurrencesLocked(out[i])
		}
	}
	return out, nil
}

// UpdateDescription creates the label when ID is 0. Renaming a label also
// renames it on the transactions that carry it.
func (s *Store) UpdateDescription(_ context.Context, d core.Description) (core.Description, error) {
	if err := d.Validate(); err != nil {
		return core.Description{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.nextDesc++
		d.ID = s.nextDesc
		s.descs = append(s.descs, d)
		return d, nil
	}
	i := s.descIndex(d.ID)
	if i < 0 {
		return core.Description{}, fmt.Errorf("description %d: %w", d.ID, ledger.ErrNotFound)
	}
	old := s.descs[i]
	for j := range s.txs {
		if s.txs[j].Type == old.Type && s.txs[j].Description == old.Text {
			s.txs[j].Description = d.Text
		}
	}
	s.descs[i] = d
	return d, nil
}

func (s *Store) DeleteDescription(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.descIndex(id)
	if i < 0 {
		return fmt.Errorf("description %d: %w", id, ledger.ErrNotFound)
	}
	if n := s.occurrencesLocked(s.descs[i]); n > 0 {
		return fmt.Errorf("description %q used by %d transactions: %w", s.descs[i].Text, n, ledger.ErrConflict)
	}
	s.descs = slices.Delete(s.descs, i, i+1)
	return nil
}

func (s *Store) checkAccountsLocked(tx core.Transaction) error {
	if s.accountIndex(tx.Account.ID) < 0 {
		return fmt.Errorf("account %d: %w", tx.Account.ID, ledger.ErrNotFound)
	}
	if tx.SourceAccount != nil && s.accountIndex(tx.SourceAccount.ID) < 0 {
		return fmt.Errorf("account %d: %w", tx.SourceAccount.ID, ledger.ErrNotFound)
	}
	return nil
}

func (s *Store) registerDescriptionLocked(tx core.Transaction) {
	if tx.Type == core.Withdrawal || strings.TrimSpace(tx.Description) == "" {
		return
	}
	for _, d := range s.descs {
		if d.Type == tx.Type && d.Text == tx.Description {
			return
		}
	}
	s.nextDesc++
	s.descs = append(s.descs, core.Description{ID: s.nextDesc, Type: tx.Type, Text: tx.Description})
}

func (s *Store) occurrencesLocked(d core.Description) int {
	n := 0
	for _, tx := range s.txs {
		if tx.Type == d.Type && tx.Description == d.Text {
			n++
		}
	}
	return n
}

func (s *Store) txIndex(id int64) int {
	return slices.IndexFunc(s.txs, func(tx core.Transaction) bool { return tx.ID == id })
}

func (s *Store) accountIndex(id int64) int {
	return slices.IndexFunc(s.accounts, func(a core.Account) bool { return a.ID == id })
}

func (s *Store) descIndex(id int64) int {
	return slices.IndexFunc(s.descs, func(d core.Description) bool { return d.ID == id })
}

var _ ledger.Ledger = (*Store)(nil)
