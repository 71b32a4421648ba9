package sheets

import (
	"fmt"
	"strconv"

	"conti/internal/core"
)

// Header is the first row of every report sheet.
var Header = []string{"Month", "Description", "Type", "Total"}

// SheetName is the title of the report sheet for year.
func SheetName(year int) string {
	return strconv.Itoa(year) + " Report"
}

// BuildYearRows lays out a year summary as sheet rows: the header, then for
// each month one row per category group followed by the month totals, and
// the year totals last. Amounts are decimal strings with two places.
func BuildYearRows(y core.YearSummary) [][]string {
	rows := [][]string{append([]string(nil), Header...)}
	for _, m := range y.Months {
		label := fmt.Sprintf("%04d-%02d", m.Year, m.Month)
		for _, g := range m.EarningGroups {
			rows = append(rows, []string{label, groupLabel(g.Description), core.Income.Label(), g.Total.String()})
		}
		for _, g := range m.ExpenseGroups {
			rows = append(rows, []string{label, groupLabel(g.Description), core.Expense.Label(), g.Total.String()})
		}
		rows = append(rows, totalRows(label, "Month", m.TotalEarnings, m.TotalExpenses, m.TotalWithdrawals, m.Net)...)
	}
	return append(rows, totalRows(strconv.Itoa(y.Year), "Year", y.TotalEarnings, y.TotalExpenses, y.TotalWithdrawals, y.Net)...)
}

func totalRows(label, scope string, earnings, expenses, withdrawals, net core.Money) [][]string {
	rows := [][]string{
		{label, scope + " income", core.Income.Label(), earnings.String()},
		{label, scope + " expenses", core.Expense.Label(), expenses.String()},
	}
	if !withdrawals.IsZero() {
		rows = append(rows, []string{label, scope + " withdrawals", core.Withdrawal.Label(), withdrawals.String()})
	}
	return append(rows, []string{label, scope + " net", "net", net.String()})
}

func groupLabel(description string) string {
	if description == "" {
		return "(no description)"
	}
	return description
}
