package screens

import (
	"context"
	"sync"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
)

type TransactionController = listsync.Controller[core.Transaction, core.TransactionDraft]

func newTransactionController(d Deps) *TransactionController {
	clock := d.clock()
	return listsync.New[core.Transaction, core.TransactionDraft](api.Transactions(d.Client), listsync.Config[core.Transaction, core.TransactionDraft]{
		Name:      "transactions",
		Noun:      "transaction",
		NewDraft:  func() core.TransactionDraft { return core.NewTransactionDraft(core.Today(clock())) },
		DraftFrom: core.TransactionDraftFrom,
		Publisher: d.Publisher,
		Notify:    d.Notify,
		Logger:    d.Logger,
		Clock:     clock,
	})
}

// Transactions is the transaction list page: the synced list, the category
// list for the form and the active filter.
type Transactions struct {
	*TransactionController
	client *api.Client
	logger *log.Logger

	mu         sync.RWMutex
	categories []core.Category
	filter     filter.Spec
}

func NewTransactions(d Deps) *Transactions {
	return &Transactions{
		TransactionController: newTransactionController(d),
		client:                d.Client,
		logger:                d.logger().WithComponent(log.ComponentListSync),
		categories:            []core.Category{},
	}
}

// Load fetches categories and transactions. A category failure is logged
// and tolerated; the form then offers no categories.
func (s *Transactions) Load(ctx context.Context) error {
	if err := s.LoadCategories(ctx); err != nil {
		s.logger.WarnContext(ctx, "Error fetching categories", log.FieldError, err.Error())
	}
	return s.Refresh(ctx)
}

func (s *Transactions) LoadCategories(ctx context.Context) error {
	cats, err := s.client.Categories(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.categories = cats
	s.mu.Unlock()
	return nil
}

func (s *Transactions) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.categories...)
}

// CategoryOptions lists the categories matching the draft's type.
func (s *Transactions) CategoryOptions() []core.Category {
	return core.CategoriesFor(s.Categories(), s.Draft().Type)
}

// SetDraftType switches the draft type, dropping a category of the old type.
func (s *Transactions) SetDraftType(t core.EntryType) {
	s.UpdateDraft(func(d *core.TransactionDraft) { d.SetType(t) })
}

// Submit checks the draft's category against the loaded categories before
// handing it to the controller.
func (s *Transactions) Submit(ctx context.Context) error {
	if cats := s.Categories(); len(cats) > 0 {
		if err := s.Draft().ValidateCategory(cats); err != nil {
			return err
		}
	}
	return s.TransactionController.Submit(ctx)
}

func (s *Transactions) Filter() filter.Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Transactions) SetFilter(f filter.Spec) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *Transactions) ResetFilter() {
	s.mu.Lock()
	s.filter.Reset()
	s.mu.Unlock()
}

// Visible is the current snapshot narrowed by the active filter.
func (s *Transactions) Visible() []core.Transaction {
	return s.Filter().Apply(s.Items())
}
