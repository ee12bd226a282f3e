package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(id int64, t core.EntryType, amount string, cat int64, date core.Date) core.Transaction {
	return core.Transaction{ID: id, Type: t, Amount: d(amount), CategoryID: cat, Date: date}
}

func TestDashboardTotals(t *testing.T) {
	txns := []core.Transaction{
		tx(1, core.Income, "2500.10", 1, core.NewDate(2024, 1, 1)),
		tx(2, core.Expense, "45.00", 3, core.NewDate(2024, 1, 5)),
		tx(3, core.Expense, "0.10", 3, core.NewDate(2024, 1, 6)),
		tx(4, core.Expense, "0.20", 5, core.NewDate(2024, 1, 7)),
		tx(5, core.Income, "0.30", 2, core.NewDate(2024, 1, 8)),
		tx(6, core.Expense, "1200", 4, core.NewDate(2024, 1, 9)),
	}

	s := Dashboard(txns, 0)

	assert.Equal(t, "2500.40", s.TotalIncome.StringFixed(2))
	assert.Equal(t, "1245.30", s.TotalExpenses.StringFixed(2))
	assert.True(t, s.TotalIncome.Sub(s.TotalExpenses).Equal(s.NetSavings), "net is exactly income minus expenses")
	assert.Equal(t, "1255.10", s.NetSavings.StringFixed(2))
	assert.Equal(t, "50.2", s.SavingsRate.StringFixed(1))
	assert.Equal(t, 6, s.Count)

	require.Len(t, s.Recent, DefaultRecentLimit)
	assert.Equal(t, int64(1), s.Recent[0].ID, "server order is kept")
	assert.Len(t, Dashboard(txns, 2).Recent, 2)
}

func TestDashboardEmptyAndNoIncome(t *testing.T) {
	s := Dashboard(nil, 5)
	assert.True(t, s.NetSavings.IsZero())
	assert.True(t, s.SavingsRate.IsZero())
	assert.Empty(t, s.Recent)

	s = Dashboard([]core.Transaction{tx(1, core.Expense, "10", 3, core.NewDate(2024, 1, 1))}, 5)
	assert.Equal(t, "-10", s.NetSavings.String())
	assert.True(t, s.SavingsRate.IsZero(), "no income means a zero rate")
}

func TestBudgetUtilization(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		spent      string
		ratio      string
		percentage string
		tier       Tier
		remaining  string
	}{
		{"nothing spent", "100", "0", "0", "0", TierNormal, "100"},
		{"exactly at warning", "100", "80", "80", "80", TierNormal, "20"},
		{"just past warning", "100", "80.01", "80.01", "80.01", TierWarning, "19.99"},
		{"exactly at limit", "100", "100", "100", "100", TierWarning, "0"},
		{"over", "100", "150", "150", "100", TierOver, "-50"},
		{"zero amount", "0", "50", "0", "0", TierNormal, "-50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := BudgetUtilization(core.Budget{Amount: d(tt.amount), Spent: d(tt.spent)}, DefaultThresholds())
			assert.True(t, d(tt.ratio).Equal(u.Ratio), "ratio %s", u.Ratio)
			assert.True(t, d(tt.percentage).Equal(u.Percentage), "percentage %s", u.Percentage)
			assert.Equal(t, tt.tier, u.Tier)
			assert.True(t, d(tt.remaining).Equal(u.Remaining), "remaining %s", u.Remaining)
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	th := ThresholdsFromPercent(50, 90)
	b := core.Budget{Amount: d("200"), Spent: d("120")}
	assert.Equal(t, TierWarning, BudgetUtilization(b, th).Tier)
	b.Spent = d("181")
	assert.Equal(t, TierOver, BudgetUtilization(b, th).Tier)
}

func TestGoalProgress(t *testing.T) {
	g := core.Goal{TargetAmount: d("500"), CurrentAmount: d("0")}
	p := GoalProgress(g)
	assert.True(t, p.Percentage.IsZero())
	assert.False(t, p.Complete)
	assert.Equal(t, "500", p.Remaining.String())

	g.CurrentAmount = d("500")
	p = GoalProgress(g)
	assert.True(t, hundred.Equal(p.Percentage))
	assert.True(t, p.Complete)
	assert.True(t, p.Remaining.IsZero())

	g.CurrentAmount = d("750")
	p = GoalProgress(g)
	assert.True(t, hundred.Equal(p.Percentage), "capped at 100")
	assert.True(t, p.Remaining.IsZero(), "never negative")

	p = GoalProgress(core.Goal{CurrentAmount: d("10")})
	assert.True(t, p.Percentage.IsZero())
	assert.False(t, p.Complete)
}

func TestMonthlyTrend(t *testing.T) {
	txns := []core.Transaction{
		tx(1, core.Income, "3000", 1, core.NewDate(2024, 1, 31)),
		tx(2, core.Expense, "1200", 4, core.NewDate(2024, 1, 2)),
		tx(3, core.Expense, "60", 3, core.NewDate(2024, 3, 15)),
		tx(4, core.Income, "999", 1, core.NewDate(2023, 12, 31)),
		{ID: 5, Type: core.Income, Amount: d("1")},
	}

	rows := MonthlyTrend(txns, 2024)
	require.Len(t, rows, 12)
	assert.Equal(t, time.January, rows[0].Month)
	assert.Equal(t, "1800", rows[0].Savings.String())
	assert.True(t, rows[1].Income.IsZero())
	assert.Equal(t, "-60", rows[2].Savings.String())
	assert.True(t, rows[11].Income.IsZero(), "other years are ignored")
}

func TestCategorySpending(t *testing.T) {
	txns := []core.Transaction{
		{Type: core.Expense, Amount: d("45"), CategoryID: 3, CategoryName: "Groceries"},
		{Type: core.Income, Amount: d("100"), CategoryID: 1, CategoryName: "Salary"},
		{Type: core.Expense, Amount: d("1200"), CategoryID: 4, CategoryName: "Rent"},
		{Type: core.Expense, Amount: d("5.50"), CategoryID: 3, CategoryName: "Groceries"},
	}

	got := CategorySpending(txns)
	require.Len(t, got, 2)
	assert.Equal(t, "Groceries", got[0].Name)
	assert.Equal(t, "50.5", got[0].Amount.String())
	assert.Equal(t, int64(4), got[1].CategoryID)
	assert.Empty(t, CategorySpending(nil))
}
