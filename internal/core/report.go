package core

import "sort"

// DescriptionTotals folds the months of a year into per-description totals.
// Descriptions appear in first-seen order walking the months in calendar order.
func DescriptionTotals(y YearSummary) YearDescriptionTotals {
	out := YearDescriptionTotals{
		Year:     y.Year,
		Earnings: []DescriptionTotal{},
		Expenses: []DescriptionTotal{},
	}
	earnIdx := make(map[string]int)
	expIdx := make(map[string]int)
	for _, m := range y.Months {
		out.Earnings = foldGroups(out.Earnings, earnIdx, m.EarningGroups)
		out.Expenses = foldGroups(out.Expenses, expIdx, m.ExpenseGroups)
		out.TotalEarnings = out.TotalEarnings.Add(m.TotalEarnings)
		out.TotalExpenses = out.TotalExpenses.Add(m.TotalExpenses)
	}
	return out
}

func foldGroups(dst []DescriptionTotal, index map[string]int, groups []CategoryGroup) []DescriptionTotal {
	for _, g := range groups {
		i, ok := index[g.Description]
		if !ok {
			index[g.Description] = len(dst)
			dst = append(dst, DescriptionTotal{Description: g.Description, Total: g.Total})
			continue
		}
		dst[i].Total = dst[i].Total.Add(g.Total)
	}
	return dst
}

// SortByTotalDesc returns a copy ordered by total, largest first. Ties keep
// their relative order.
func SortByTotalDesc(in []DescriptionTotal) []DescriptionTotal {
	out := append([]DescriptionTotal(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// TrendPoint is one year on the trend chart.
type TrendPoint struct {
	Year     int   `json:"year" yaml:"year"`
	Earnings Money `json:"earnings" yaml:"earnings"`
	Expenses Money `json:"expenses" yaml:"expenses"`
	Profit   Money `json:"profit" yaml:"profit"`
}

// Trend is the multi-year series with its headline figures.
type Trend struct {
	Points        []TrendPoint `json:"points" yaml:"points"`
	AverageProfit Money        `json:"averageProfit" yaml:"average_profit"`
	BestYear      int          `json:"bestYear,omitempty" yaml:"best_year,omitempty"`
	WorstYear     int          `json:"worstYear,omitempty" yaml:"worst_year,omitempty"`
}

// BuildTrend derives the yearly series from aggregated summaries. The average
// is truncated toward zero to whole cents. On equal profit the earlier year
// wins both best and worst.
func BuildTrend(years []YearSummary) Trend {
	t := Trend{Points: make([]TrendPoint, 0, len(years))}
	sorted := append([]YearSummary(nil), years...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	var sum int64
	best, worst := 0, 0
	for i, y := range sorted {
		p := TrendPoint{Year: y.Year, Earnings: y.TotalEarnings, Expenses: y.TotalExpenses, Profit: y.Net}
		t.Points = append(t.Points, p)
		sum += p.Profit.Cents
		if p.Profit.Cents > t.Points[best].Profit.Cents {
			best = i
		}
		if p.Profit.Cents < t.Points[worst].Profit.Cents {
			worst = i
		}
	}
	if len(t.Points) > 0 {
		t.AverageProfit = Money{Cents: sum / int64(len(t.Points))}
		t.BestYear = t.Points[best].Year
		t.WorstYear = t.Points[worst].Year
	}
	return t
}
