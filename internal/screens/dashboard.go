package screens

import (
	"context"

	"fintrack/internal/aggregate"
)

// Dashboard keeps its own transaction list and derives the headline figures
// from it on demand.
type Dashboard struct {
	*TransactionController
	limit int
}

func NewDashboard(d Deps) *Dashboard {
	return &Dashboard{TransactionController: newTransactionController(d), limit: d.RecentLimit}
}

func (s *Dashboard) Load(ctx context.Context) error {
	return s.Refresh(ctx)
}

func (s *Dashboard) Summary() aggregate.Summary {
	return aggregate.Dashboard(s.Items(), s.limit)
}

func (s *Dashboard) Trend(year int) []aggregate.MonthTotals {
	return aggregate.MonthlyTrend(s.Items(), year)
}

func (s *Dashboard) Spending() []aggregate.CategoryTotal {
	return aggregate.CategorySpending(s.Items())
}
