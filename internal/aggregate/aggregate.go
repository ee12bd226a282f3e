// Package aggregate derives summary figures from list snapshots. Everything
// here is a pure function of its inputs; results are recomputed from the
// current snapshot on every call and never cached.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const DefaultRecentLimit = 5

var hundred = decimal.NewFromInt(100)

// Summary is the dashboard headline.
type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetSavings    decimal.Decimal
	SavingsRate   decimal.Decimal // percent of income kept, zero without income
	Count         int
	Recent        []core.Transaction
}

// Dashboard totals txns by type and keeps the first limit entries, in the
// order the server returned them, as the recent list.
func Dashboard(txns []core.Transaction, limit int) Summary {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	s := Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Count:         len(txns),
	}
	for _, t := range txns {
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.NetSavings = s.TotalIncome.Sub(s.TotalExpenses)
	s.SavingsRate = decimal.Zero
	if s.TotalIncome.IsPositive() {
		s.SavingsRate = s.NetSavings.Div(s.TotalIncome).Mul(hundred)
	}
	n := min(limit, len(txns))
	s.Recent = make([]core.Transaction, n)
	copy(s.Recent, txns[:n])
	return s
}

// Tier classifies how much of a budget has been used.
type Tier string

const (
	TierNormal  Tier = "normal"
	TierWarning Tier = "warning"
	TierOver    Tier = "over"
)

// Thresholds are the utilization percentages at which a budget changes tier.
type Thresholds struct {
	Warning decimal.Decimal
	Over    decimal.Decimal
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warning: decimal.NewFromInt(80), Over: hundred}
}

// ThresholdsFromPercent builds thresholds from configuration values.
func ThresholdsFromPercent(warning, over float64) Thresholds {
	return Thresholds{Warning: decimal.NewFromFloat(warning), Over: decimal.NewFromFloat(over)}
}

// Utilization is the derived state of one budget.
type Utilization struct {
	Ratio      decimal.Decimal // spent as a percent of amount, unclamped
	Percentage decimal.Decimal // Ratio capped at 100, for progress bars
	Tier       Tier
	Remaining  decimal.Decimal // may be negative once over budget
}

// BudgetUtilization compares spent to amount. The tier is taken from the
// unclamped ratio: above Over is over, above Warning up to and including
// Over is a warning, anything else is normal.
func BudgetUtilization(b core.Budget, th Thresholds) Utilization {
	u := Utilization{
		Ratio:      decimal.Zero,
		Percentage: decimal.Zero,
		Tier:       TierNormal,
		Remaining:  b.Amount.Sub(b.Spent),
	}
	if b.Spent.IsZero() || b.Amount.IsZero() {
		return u
	}
	u.Ratio = b.Spent.Div(b.Amount).Mul(hundred)
	u.Percentage = decimal.Min(u.Ratio, hundred)
	switch {
	case u.Ratio.GreaterThan(th.Over):
		u.Tier = TierOver
	case u.Ratio.GreaterThan(th.Warning):
		u.Tier = TierWarning
	}
	return u
}

// Progress is the derived state of one savings goal.
type Progress struct {
	Percentage decimal.Decimal // capped at 100
	Complete   bool
	Remaining  decimal.Decimal // never negative
}

func GoalProgress(g core.Goal) Progress {
	p := Progress{Percentage: decimal.Zero, Remaining: decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero)}
	if g.TargetAmount.IsZero() {
		return p
	}
	p.Percentage = decimal.Min(g.CurrentAmount.Div(g.TargetAmount).Mul(hundred), hundred)
	p.Complete = p.Percentage.GreaterThanOrEqual(hundred)
	return p
}

// MonthTotals is one row of a yearly trend.
type MonthTotals struct {
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Savings  decimal.Decimal
}

// MonthlyTrend buckets the transactions dated in year into twelve months.
func MonthlyTrend(txns []core.Transaction, year int) []MonthTotals {
	rows := make([]MonthTotals, 12)
	for i := range rows {
		rows[i] = MonthTotals{Month: time.Month(i + 1), Income: decimal.Zero, Expenses: decimal.Zero}
	}
	for _, t := range txns {
		if t.Date.IsZero() || t.Date.Year() != year {
			continue
		}
		row := &rows[t.Date.Month()-1]
		switch t.Type {
		case core.Income:
			row.Income = row.Income.Add(t.Amount)
		case core.Expense:
			row.Expenses = row.Expenses.Add(t.Amount)
		}
	}
	for i := range rows {
		rows[i].Savings = rows[i].Income.Sub(rows[i].Expenses)
	}
	return rows
}

// CategoryTotal is the expense total for one category.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Amount     decimal.Decimal
}

// CategorySpending sums expenses per category, in the order each category
// first appears.
func CategorySpending(txns []core.Transaction) []CategoryTotal {
	var out []CategoryTotal
	index := map[int64]int{}
	for _, t := range txns {
		if t.Type != core.Expense {
			continue
		}
		i, ok := index[t.CategoryID]
		if !ok {
			i = len(out)
			index[t.CategoryID] = i
			out = append(out, CategoryTotal{CategoryID: t.CategoryID, Name: t.CategoryName, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}
