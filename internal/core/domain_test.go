package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []Category{
	{ID: 1, Name: "Salary", Type: Income},
	{ID: 3, Name: "Groceries", Type: Expense},
	{ID: 4, Name: "Rent", Type: Expense},
}

func TestCategoriesFor(t *testing.T) {
	got := CategoriesFor(testCategories, Expense)
	require.Len(t, got, 2)
	assert.Equal(t, "Groceries", got[0].Name)
	assert.Equal(t, "Rent", got[1].Name)

	assert.Len(t, CategoriesFor(testCategories, Income), 1)
	assert.Empty(t, CategoriesFor(nil, Income))
}

func TestTransactionDraftSetTypeClearsCategory(t *testing.T) {
	d := NewTransactionDraft(NewDate(2024, 1, 5))
	d.CategoryID = 3

	d.SetType(Expense)
	assert.Equal(t, int64(3), d.CategoryID, "same type keeps the selection")

	d.SetType(Income)
	assert.Equal(t, Income, d.Type)
	assert.Zero(t, d.CategoryID, "switching type must clear the stale category")

	d.CategoryID = 1
	d.SetType(Expense)
	assert.Zero(t, d.CategoryID)
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{
		Type:        Expense,
		Amount:      decimal.RequireFromString("45.00"),
		CategoryID:  3,
		Date:        NewDate(2024, 1, 5),
		Description: "Groceries",
	}
	require.NoError(t, good.Validate())
	require.NoError(t, good.ValidateCategory(testCategories))

	bads := []TransactionDraft{
		{Type: "transfer", Amount: decimal.NewFromInt(1), CategoryID: 3, Date: NewDate(2024, 1, 5)},
		{Type: Expense, Amount: decimal.Zero, CategoryID: 3, Date: NewDate(2024, 1, 5)},
		{Type: Expense, Amount: decimal.NewFromInt(1), Date: NewDate(2024, 1, 5)},
		{Type: Expense, Amount: decimal.NewFromInt(1), CategoryID: 3},
	}
	for i, d := range bads {
		err := d.Validate()
		assert.Error(t, err, "case %d", i)
		assert.True(t, IsValidation(err), "case %d", i)
	}

	mismatched := good
	mismatched.CategoryID = 1
	err := mismatched.ValidateCategory(testCategories)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category_id", ve.Field)

	unknown := good
	unknown.CategoryID = 99
	assert.ErrorIs(t, unknown.ValidateCategory(testCategories), ErrMissingCategory)
}

func TestBudgetAndGoalDraftValidate(t *testing.T) {
	b := NewBudgetDraft()
	assert.Equal(t, Monthly, b.Period)
	assert.ErrorIs(t, b.Validate(), ErrMissingCategory)
	b.CategoryID = 3
	b.Amount = decimal.NewFromInt(200)
	assert.NoError(t, b.Validate())
	b.Period = "daily"
	assert.ErrorIs(t, b.Validate(), ErrInvalidPeriod)

	g := NewGoalDraft()
	assert.True(t, IsValidation(g.Validate()))
	g = GoalDraft{Name: "Emergency Fund", TargetAmount: decimal.NewFromInt(500), Deadline: NewDate(2025, 12, 31)}
	assert.NoError(t, g.Validate())
}

func TestDraftFromEntities(t *testing.T) {
	tx := Transaction{ID: 7, Type: Income, Amount: decimal.NewFromInt(10), CategoryID: 1, Date: NewDate(2024, 2, 1), Description: "pay", Notes: "n"}
	d := TransactionDraftFrom(tx)
	assert.Equal(t, TransactionDraft{Type: Income, Amount: tx.Amount, CategoryID: 1, Date: tx.Date, Description: "pay", Notes: "n"}, d)

	b := BudgetDraftFrom(Budget{ID: 2, CategoryID: 3, Amount: decimal.NewFromInt(100), Period: Weekly, Spent: decimal.NewFromInt(5)})
	assert.Equal(t, BudgetDraft{CategoryID: 3, Amount: decimal.NewFromInt(100), Period: Weekly}, b)

	g := GoalDraftFrom(Goal{ID: 4, Name: "Car", TargetAmount: decimal.NewFromInt(9000), Deadline: NewDate(2026, 1, 1)})
	assert.Equal(t, "Car", g.Name)
	assert.Equal(t, "2026-01-01", g.Deadline.String())
}

func TestDateJSON(t *testing.T) {
	var tx Transaction
	payload := `{"transaction_id":5,"type":"expense","amount":45.5,"category_id":3,"category_name":"Groceries","date":"2024-01-05","description":"Groceries","notes":null}`
	require.NoError(t, json.Unmarshal([]byte(payload), &tx))
	assert.Equal(t, int64(5), tx.ID)
	assert.Equal(t, "45.50", FormatAmount(tx.Amount))
	assert.Equal(t, NewDate(2024, 1, 5), tx.Date)
	assert.Empty(t, tx.Notes)

	var g Goal
	require.NoError(t, json.Unmarshal([]byte(`{"goal_id":1,"name":"x","target_amount":500,"current_amount":0,"deadline":null}`), &g))
	assert.True(t, g.Deadline.IsZero())

	out, err := json.Marshal(GoalDraft{Name: "x", TargetAmount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","target_amount":"5","deadline":null}`, string(out))

	_, err = ParseDate("05/01/2024")
	assert.True(t, IsValidation(err))

	assert.Equal(t, NewDate(2024, 3, 9), Today(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)))
}
