package core

// Page is one page of the paginated transaction listing.
type Page struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   int           `json:"totalCount"`
	PageIndex    int           `json:"pageIndex"`
	PageSize     int           `json:"pageSize"`
}

// TransactionList accumulates pages for infinite scrolling. It is not safe
// for concurrent use; each session owns its own list.
type TransactionList struct {
	items       []Transaction
	seen        map[int64]struct{}
	totalCount  int
	currentPage int
	hasMore     bool
}

func NewTransactionList() *TransactionList {
	l := &TransactionList{}
	l.Reset()
	return l
}

// Append adds the page's transactions that are not already present and
// advances the page cursor.
func (l *TransactionList) Append(p Page) {
	for _, tx := range p.Transactions {
		if _, dup := l.seen[tx.ID]; dup {
			continue
		}
		l.seen[tx.ID] = struct{}{}
		l.items = append(l.items, tx)
	}
	l.totalCount = p.TotalCount
	l.hasMore = len(l.items) < p.TotalCount
	l.currentPage++
}

// Remove drops a transaction after it was deleted upstream.
func (l *TransactionList) Remove(id int64) {
	if _, ok := l.seen[id]; !ok {
		return
	}
	delete(l.seen, id)
	for i, tx := range l.items {
		if tx.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	if l.totalCount > 0 {
		l.totalCount--
	}
}

// Replace swaps in an updated transaction, keeping its position.
func (l *TransactionList) Replace(tx Transaction) {
	for i := range l.items {
		if l.items[i].ID == tx.ID {
			l.items[i] = tx
			return
		}
	}
}

func (l *TransactionList) Reset() {
	l.items = nil
	l.seen = make(map[int64]struct{})
	l.totalCount = 0
	l.currentPage = 0
	l.hasMore = true
}

func (l *TransactionList) Items() []Transaction {
	return append([]Transaction(nil), l.items...)
}

func (l *TransactionList) TotalCount() int { return l.totalCount }
func (l *TransactionList) HasMore() bool   { return l.hasMore }

// NextPage is the index of the page to fetch next.
func (l *TransactionList) NextPage() int { return l.currentPage }
