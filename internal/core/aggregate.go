package core

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedDate is matched by every *MalformedDateError.
var ErrMalformedDate = errors.New("malformed transaction date")

// MalformedDateError reports a transaction whose date cannot be split into
// year and month. Dates are expected to be validated at the schema boundary.
type MalformedDateError struct {
	TransactionID int64
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("transaction %d: %s", e.TransactionID, ErrMalformedDate)
}

func (e *MalformedDateError) Is(target error) bool {
	return target == ErrMalformedDate
}

type monthKey struct {
	year, month int
}

// monthBucket accumulates one month while walking the input. Groups are kept
// in first-seen order, the index maps a description to its slot.
type monthBucket struct {
	earnings     []CategoryGroup
	earningIndex map[string]int
	expenses     []CategoryGroup
	expenseIndex map[string]int
	withdrawals  []Transaction
}

func newMonthBucket() *monthBucket {
	return &monthBucket{
		earningIndex: make(map[string]int),
		expenseIndex: make(map[string]int),
	}
}

func (b *monthBucket) add(tx Transaction) {
	switch tx.Type {
	case Income:
		b.earnings = appendToGroup(b.earnings, b.earningIndex, tx)
	case Expense:
		b.expenses = appendToGroup(b.expenses, b.expenseIndex, tx)
	default:
		// Withdrawal; the schema layer rejects any other type.
		b.withdrawals = append(b.withdrawals, tx)
	}
}

func appendToGroup(groups []CategoryGroup, index map[string]int, tx Transaction) []CategoryGroup {
	i, ok := index[tx.Description]
	if !ok {
		index[tx.Description] = len(groups)
		return append(groups, CategoryGroup{
			Description:  tx.Description,
			Transactions: []Transaction{tx},
			Total:        tx.Amount,
		})
	}
	groups[i].Transactions = append(groups[i].Transactions, tx)
	groups[i].Total = groups[i].Total.Add(tx.Amount)
	return groups
}

func (b *monthBucket) summary(key monthKey) MonthSummary {
	m := MonthSummary{
		Year:          key.year,
		Month:         key.month,
		EarningGroups: nonNilGroups(b.earnings),
		ExpenseGroups: nonNilGroups(b.expenses),
		Withdrawals:   b.withdrawals,
	}
	if m.Withdrawals == nil {
		m.Withdrawals = []Transaction{}
	}
	for _, g := range m.EarningGroups {
		m.TotalEarnings = m.TotalEarnings.Add(g.Total)
	}
	for _, g := range m.ExpenseGroups {
		m.TotalExpenses = m.TotalExpenses.Add(g.Total)
	}
	for _, w := range m.Withdrawals {
		m.TotalWithdrawals = m.TotalWithdrawals.Add(w.Amount)
	}
	m.Net = m.TotalEarnings.Sub(m.TotalExpenses)
	return m
}

func nonNilGroups(g []CategoryGroup) []CategoryGroup {
	if g == nil {
		return []CategoryGroup{}
	}
	return g
}

// Aggregate groups transactions by year, then month, then description.
//
// Income and expense transactions are partitioned into CategoryGroups by exact
// description match; an empty description is a group of its own. Withdrawals
// stay ungrouped and never contribute to earnings, expenses or net. Every total
// is the exact sum of the level below it. Years and months come out ascending,
// groups and their members keep input order. The input is not modified.
//
// Any transaction with a zero date yields a *MalformedDateError and no result.
func Aggregate(txs []Transaction) ([]YearSummary, error) {
	buckets := make(map[monthKey]*monthBucket)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			return nil, &MalformedDateError{TransactionID: tx.ID}
		}
		key := monthKey{year: tx.Date.Year(), month: tx.Date.Month()}
		b, ok := buckets[key]
		if !ok {
			b = newMonthBucket()
			buckets[key] = b
		}
		b.add(tx)
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	years := make([]YearSummary, 0)
	for _, k := range keys {
		if len(years) == 0 || years[len(years)-1].Year != k.year {
			years = append(years, YearSummary{Year: k.year})
		}
		y := &years[len(years)-1]
		m := buckets[k].summary(k)
		y.Months = append(y.Months, m)
		y.TotalEarnings = y.TotalEarnings.Add(m.TotalEarnings)
		y.TotalExpenses = y.TotalExpenses.Add(m.TotalExpenses)
		y.TotalWithdrawals = y.TotalWithdrawals.Add(m.TotalWithdrawals)
	}
	for i := range years {
		years[i].Net = years[i].TotalEarnings.Sub(years[i].TotalExpenses)
	}
	return years, nil
}
