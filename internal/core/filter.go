package core

import "slices"

// TransactionFilter narrows a transaction set before aggregation. An empty
// field places no constraint.
type TransactionFilter struct {
	Years        []int
	Months       []int
	Types        []OperationType
	Descriptions []string
	AccountIDs   []int64 // Matches the destination or the source account
}

// IsEmpty reports whether the filter lets everything through.
func (f TransactionFilter) IsEmpty() bool {
	return len(f.Years) == 0 && len(f.Months) == 0 && len(f.Types) == 0 &&
		len(f.Descriptions) == 0 && len(f.AccountIDs) == 0
}

func (f TransactionFilter) Match(tx Transaction) bool {
	if len(f.Years) > 0 && !slices.Contains(f.Years, tx.Date.Year()) {
		return false
	}
	if len(f.Months) > 0 && !slices.Contains(f.Months, tx.Date.Month()) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, tx.Type) {
		return false
	}
	if len(f.Descriptions) > 0 && !slices.Contains(f.Descriptions, tx.Description) {
		return false
	}
	if len(f.AccountIDs) > 0 {
		matched := slices.Contains(f.AccountIDs, tx.Account.ID)
		if !matched && tx.SourceAccount != nil {
			matched = slices.Contains(f.AccountIDs, tx.SourceAccount.ID)
		}
		if !matched {
			return false
		}
	}
	return true
}

// Apply returns the matching transactions in input order.
func (f TransactionFilter) Apply(txs []Transaction) []Transaction {
	if f.IsEmpty() {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}
