package core

import "sort"

// SummaryRow compares budget against actual spending for one category.
type SummaryRow struct {
	Category    string
	Budget      float64
	Spent       float64
	Remaining   float64
	PercentUsed float64
}

// Summary is the monthly budget-vs-actual report.
type Summary struct {
	TotalIncome float64
	TotalSpent  float64
	OverallLeft float64
	Rows        []SummaryRow
}

// TrendPoint is one month's income and expense totals.
type TrendPoint struct {
	Month   string
	Income  float64
	Expense float64
}

// MonthlySummary derives the budget-vs-actual report for one month from
// ledger snapshots. It has no side effects and performs no I/O.
//
// The row set is the union of category labels that appear in either the
// budgets or the expenses: a category with a budget but no spending shows
// spent=0, and a category with spending but no budget shows budget=0.
// Rows are sorted by category label ascending. Empty input yields an
// empty, correctly-typed result.
func MonthlySummary(incomes []Income, expenses []Expense, budgets []Budget) Summary {
	var totalIncome, totalSpent float64
	for _, in := range incomes {
		totalIncome += in.Amount
	}
	for _, e := range expenses {
		totalSpent += e.Amount
	}

	spentByCategory := CategoryBreakdown(expenses)
	budgetByCategory := make(map[string]float64, len(budgets))
	for _, b := range budgets {
		budgetByCategory[b.Category] = b.Amount
	}

	labels := make([]string, 0, len(spentByCategory)+len(budgetByCategory))
	seen := make(map[string]struct{})
	for c := range budgetByCategory {
		seen[c] = struct{}{}
		labels = append(labels, c)
	}
	for c := range spentByCategory {
		if _, ok := seen[c]; !ok {
			labels = append(labels, c)
		}
	}
	sort.Strings(labels)

	rows := make([]SummaryRow, 0, len(labels))
	for _, c := range labels {
		b := budgetByCategory[c]
		s := spentByCategory[c]
		row := SummaryRow{
			Category:  c,
			Budget:    b,
			Spent:     s,
			Remaining: b - s,
		}
		// Guard against divide-by-zero for unbudgeted categories.
		if b > 0 {
			row.PercentUsed = s / b * 100
		}
		rows = append(rows, row)
	}

	return Summary{
		TotalIncome: totalIncome,
		TotalSpent:  totalSpent,
		OverallLeft: totalIncome - totalSpent,
		Rows:        rows,
	}
}

// TrendSeries produces one point per month in the caller-supplied order.
// A month missing from either map contributes 0, not a gap.
func TrendSeries(months []string, incomeByMonth, expenseByMonth map[string]float64) []TrendPoint {
	points := make([]TrendPoint, 0, len(months))
	for _, m := range months {
		points = append(points, TrendPoint{
			Month:   m,
			Income:  incomeByMonth[m],
			Expense: expenseByMonth[m],
		})
	}
	return points
}

// CategoryBreakdown groups expenses by category label, summing amounts.
func CategoryBreakdown(expenses []Expense) map[string]float64 {
	byCategory := make(map[string]float64)
	for _, e := range expenses {
		byCategory[e.Category] += e.Amount
	}
	return byCategory
}
