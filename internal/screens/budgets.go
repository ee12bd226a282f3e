package screens

import (
	"context"
	"sync"

	"fintrack/internal/aggregate"
	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
)

type BudgetController = listsync.Controller[core.Budget, core.BudgetDraft]

// BudgetCard is one budget with its derived utilization.
type BudgetCard struct {
	Budget      core.Budget
	Utilization aggregate.Utilization
}

type Budgets struct {
	*BudgetController
	client     *api.Client
	logger     *log.Logger
	thresholds aggregate.Thresholds

	mu         sync.RWMutex
	categories []core.Category
}

func NewBudgets(d Deps) *Budgets {
	ctrl := listsync.New[core.Budget, core.BudgetDraft](api.Budgets(d.Client), listsync.Config[core.Budget, core.BudgetDraft]{
		Name:      "budgets",
		Noun:      "budget",
		NewDraft:  core.NewBudgetDraft,
		DraftFrom: core.BudgetDraftFrom,
		Publisher: d.Publisher,
		Notify:    d.Notify,
		Logger:    d.Logger,
		Clock:     d.clock(),
	})
	return &Budgets{
		BudgetController: ctrl,
		client:           d.Client,
		logger:           d.logger().WithComponent(log.ComponentListSync),
		thresholds:       d.thresholds(),
		categories:       []core.Category{},
	}
}

func (s *Budgets) Load(ctx context.Context) error {
	if cats, err := s.client.Categories(ctx); err != nil {
		s.logger.WarnContext(ctx, "Error fetching categories", log.FieldError, err.Error())
	} else {
		s.mu.Lock()
		s.categories = cats
		s.mu.Unlock()
	}
	return s.Refresh(ctx)
}

// ExpenseCategories are the categories a budget can cap.
func (s *Budgets) ExpenseCategories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CategoriesFor(s.categories, core.Expense)
}

// Cards derives utilization for every budget in the current snapshot.
func (s *Budgets) Cards() []BudgetCard {
	items := s.Items()
	cards := make([]BudgetCard, len(items))
	for i, b := range items {
		cards[i] = BudgetCard{Budget: b, Utilization: aggregate.BudgetUtilization(b, s.thresholds)}
	}
	return cards
}
