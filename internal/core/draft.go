package core

import (
	"github.com/shopspring/decimal"
)

// Drafts are the mutable form state submitted on create or update. Their JSON
// shape is the request body the backend expects.
type (
	TransactionDraft struct {
		Type        EntryType       `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  int64           `json:"category_id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Notes       string          `json:"notes,omitempty"`
	}

	BudgetDraft struct {
		CategoryID int64           `json:"category_id"`
		Amount     decimal.Decimal `json:"amount"`
		Period     Period          `json:"period"`
	}

	GoalDraft struct {
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"target_amount"`
		Deadline     Date            `json:"deadline"`
	}
)

// NewTransactionDraft returns the default form: an expense dated today.
func NewTransactionDraft(today Date) TransactionDraft {
	return TransactionDraft{Type: Expense, Date: today}
}

func NewBudgetDraft() BudgetDraft {
	return BudgetDraft{Period: Monthly}
}

func NewGoalDraft() GoalDraft {
	return GoalDraft{}
}

// TransactionDraftFrom copies a transaction into an editable draft.
func TransactionDraftFrom(t Transaction) TransactionDraft {
	return TransactionDraft{
		Type:        t.Type,
		Amount:      t.Amount,
		CategoryID:  t.CategoryID,
		Date:        t.Date,
		Description: t.Description,
		Notes:       t.Notes,
	}
}

func BudgetDraftFrom(b Budget) BudgetDraft {
	return BudgetDraft{CategoryID: b.CategoryID, Amount: b.Amount, Period: b.Period}
}

func GoalDraftFrom(g Goal) GoalDraft {
	return GoalDraft{Name: g.Name, TargetAmount: g.TargetAmount, Deadline: g.Deadline}
}

// SetType switches the draft between income and expense. A previously
// selected category belongs to the old type, so it is cleared.
func (d *TransactionDraft) SetType(t EntryType) {
	if d.Type != t {
		d.CategoryID = 0
	}
	d.Type = t
}

// Validate enforces the required form fields. Business rules stay on the server.
func (d TransactionDraft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.CategoryID == 0 {
		return ErrMissingCategory
	}
	if d.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// ValidateCategory checks the selected category against the known categories:
// it must exist and share the draft's type.
func (d TransactionDraft) ValidateCategory(categories []Category) error {
	c, ok := FindCategory(categories, d.CategoryID)
	if !ok {
		return ErrMissingCategory
	}
	if c.Type != d.Type {
		return &ValidationError{Field: "category_id", Message: "category " + c.Name + " is not an " + string(d.Type) + " category"}
	}
	return nil
}

func (d BudgetDraft) Validate() error {
	if d.CategoryID == 0 {
		return ErrMissingCategory
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (d GoalDraft) Validate() error {
	if err := requireText("name", d.Name); err != nil {
		return err
	}
	if !d.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.Deadline.IsZero() {
		return ErrMissingDate
	}
	return nil
}
