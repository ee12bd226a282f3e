package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Repository is the CRUD surface of one backend collection. E is the entity
// as listed by the server, D the draft sent on create and update.
type Repository[E any, D any] struct {
	client   *Client
	resource string
	envelope string
}

// NewRepository binds a collection rooted at /resource whose list endpoint
// wraps its items under envelope.
func NewRepository[E any, D any](c *Client, resource, envelope string) *Repository[E, D] {
	return &Repository[E, D]{client: c, resource: resource, envelope: envelope}
}

func (r *Repository[E, D]) Resource() string { return r.resource }

// List fetches the whole collection in server order. A response without the
// envelope key is an empty list.
func (r *Repository[E, D]) List(ctx context.Context) ([]E, error) {
	return listEnvelope[E](ctx, r.client, "/"+r.resource+"/", r.envelope)
}

func (r *Repository[E, D]) Create(ctx context.Context, draft D) error {
	return r.client.Do(ctx, http.MethodPost, "/"+r.resource+"/", draft, nil)
}

func (r *Repository[E, D]) Update(ctx context.Context, id int64, draft D) error {
	return r.client.Do(ctx, http.MethodPut, r.itemPath(id), draft, nil)
}

func (r *Repository[E, D]) Delete(ctx context.Context, id int64) error {
	return r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Repository[E, D]) itemPath(id int64) string {
	return fmt.Sprintf("/%s/%d", r.resource, id)
}

func listEnvelope[E any](ctx context.Context, c *Client, path, envelope string) ([]E, error) {
	var payload map[string]json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	raw, ok := payload[envelope]
	if !ok || string(raw) == "null" {
		return []E{}, nil
	}
	items := []E{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", envelope, err)
	}
	return items, nil
}

type (
	TransactionRepository = Repository[core.Transaction, core.TransactionDraft]
	BudgetRepository      = Repository[core.Budget, core.BudgetDraft]
)

func Transactions(c *Client) *TransactionRepository {
	return NewRepository[core.Transaction, core.TransactionDraft](c, "transactions", "transactions")
}

func Budgets(c *Client) *BudgetRepository {
	return NewRepository[core.Budget, core.BudgetDraft](c, "budgets", "budgets")
}

// GoalRepository adds the contribution endpoint to the plain goal CRUD.
type GoalRepository struct {
	*Repository[core.Goal, core.GoalDraft]
}

func Goals(c *Client) GoalRepository {
	return GoalRepository{NewRepository[core.Goal, core.GoalDraft](c, "goals", "goals")}
}

// Contribute adds amount to a goal's current amount. The increment happens on
// the server; callers refetch to see the result.
func (r GoalRepository) Contribute(ctx context.Context, id int64, amount decimal.Decimal) error {
	body := struct {
		Amount decimal.Decimal `json:"amount"`
	}{amount}
	return r.client.Do(ctx, http.MethodPost, r.itemPath(id)+"/contribute", body, nil)
}

// Categories lists the categories available to the current user.
func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	return listEnvelope[core.Category](ctx, c, "/transactions/categories", "categories")
}

// CreateCategory adds a custom category for the current user.
func (c *Client) CreateCategory(ctx context.Context, name string, t core.EntryType) error {
	body := struct {
		Name string         `json:"name"`
		Type core.EntryType `json:"type"`
	}{name, t}
	return c.Do(ctx, http.MethodPost, "/transactions/categories", body, nil)
}
