package core

// CategoryGroup collects the transactions of one month and one direction that
// share the same description.
type CategoryGroup struct {
	Description  string        `json:"description" yaml:"description"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
	Total        Money         `json:"total" yaml:"total"`
}

// MonthSummary is the report for a single year+month.
type MonthSummary struct {
	Year             int             `json:"year" yaml:"year"`
	Month            int             `json:"month" yaml:"month"` // 1-12
	EarningGroups    []CategoryGroup `json:"earningGroups" yaml:"earning_groups"`
	ExpenseGroups    []CategoryGroup `json:"expenseGroups" yaml:"expense_groups"`
	Withdrawals      []Transaction   `json:"withdrawals" yaml:"withdrawals"`
	TotalEarnings    Money           `json:"totalEarnings" yaml:"total_earnings"`
	TotalExpenses    Money           `json:"totalExpenses" yaml:"total_expenses"`
	TotalWithdrawals Money           `json:"totalWithdrawals" yaml:"total_withdrawals"`
	Net              Money           `json:"net" yaml:"net"`
}

// YearSummary is the report for a single year, months in calendar order.
type YearSummary struct {
	Year             int            `json:"year" yaml:"year"`
	Months           []MonthSummary `json:"months" yaml:"months"`
	TotalEarnings    Money          `json:"totalEarnings" yaml:"total_earnings"`
	TotalExpenses    Money          `json:"totalExpenses" yaml:"total_expenses"`
	TotalWithdrawals Money          `json:"totalWithdrawals" yaml:"total_withdrawals"`
	Net              Money          `json:"net" yaml:"net"`
}

// DescriptionTotal is the amount aggregated by description over a period.
type DescriptionTotal struct {
	Description string `json:"description" yaml:"description"`
	Total       Money  `json:"total" yaml:"total"`
}

// YearDescriptionTotals is the annual accounting view: earnings and expenses
// by description for one year.
type YearDescriptionTotals struct {
	Year          int                `json:"year" yaml:"year"`
	Earnings      []DescriptionTotal `json:"earnings" yaml:"earnings"`
	Expenses      []DescriptionTotal `json:"expenses" yaml:"expenses"`
	TotalEarnings Money              `json:"totalEarnings" yaml:"total_earnings"`
	TotalExpenses Money              `json:"totalExpenses" yaml:"total_expenses"`
}

// Count returns the number of transactions reachable from the month.
func (m MonthSummary) Count() int {
	n := len(m.Withdrawals)
	for _, g := range m.EarningGroups {
		n += len(g.Transactions)
	}
	for _, g := range m.ExpenseGroups {
		n += len(g.Transactions)
	}
	return n
}

// Count returns the number of transactions reachable from the year.
func (y YearSummary) Count() int {
	n := 0
	for _, m := range y.Months {
		n += m.Count()
	}
	return n
}
