package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

type (
	// EntryType distinguishes money coming in from money going out.
	EntryType string

	// Period is the window a budget applies to.
	Period string

	Date struct {
		time.Time
	}

	User struct {
		ID    int64  `json:"user_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Category struct {
		ID       int64     `json:"category_id"`
		Name     string    `json:"name"`
		Type     EntryType `json:"type"`
		IsCustom bool      `json:"is_custom,omitempty"`
	}

	Transaction struct {
		ID           int64           `json:"transaction_id"`
		Type         EntryType       `json:"type"`
		Amount       decimal.Decimal `json:"amount"`
		CategoryID   int64           `json:"category_id"`
		CategoryName string          `json:"category_name,omitempty"`
		Date         Date            `json:"date"`
		Description  string          `json:"description"`
		Notes        string          `json:"notes,omitempty"`
	}

	// Budget caps spending in one category. Spent is computed by the server.
	Budget struct {
		ID           int64           `json:"budget_id"`
		CategoryID   int64           `json:"category_id"`
		CategoryName string          `json:"category_name,omitempty"`
		Amount       decimal.Decimal `json:"amount"`
		Period       Period          `json:"period"`
		Spent        decimal.Decimal `json:"spent"`
	}

	// Goal tracks savings toward a target. CurrentAmount only grows through
	// server-side contributions.
	Goal struct {
		ID            int64           `json:"goal_id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      Date            `json:"deadline"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("type must be either income or expense")
	ErrInvalidPeriod   = errors.New("period must be weekly, monthly or yearly")
	ErrMissingCategory = errors.New("category is required")
	ErrMissingDate     = errors.New("date is required")
)

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func (p Period) Valid() bool {
	switch p {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// EntityID implementations let the generic list controller locate records.
func (t Transaction) EntityID() int64 { return t.ID }
func (b Budget) EntityID() int64 { return b.ID }
func (g Goal) EntityID() int64 { return g.ID }
func (c Category) EntityID() int64 { return c.ID }

// CategoriesFor returns the categories whose type matches t, preserving order.
func CategoriesFor(categories []Category, t EntryType) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// FindCategory looks up a category by id.
func FindCategory(categories []Category, id int64) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// ValidationError is a failure detected locally, before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrMissingCategory) ||
		errors.Is(err, ErrMissingDate)
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}
