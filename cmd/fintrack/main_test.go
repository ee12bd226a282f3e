package main

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/api/apitest"
	"fintrack/internal/app"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
	"fintrack/internal/tokenstore"
)

type harness struct {
	backend *apitest.Backend
	store   *tokenstore.MemoryStore
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := apitest.New(t)
	return &harness{
		backend: backend,
		store:   tokenstore.NewMemoryStore(),
		cfg: &config.Config{
			APIBaseURL:       backend.URL(),
			TokenStore:       "memory",
			BudgetWarningPct: 80,
			BudgetOverPct:    100,
			RecentLimit:      5,
			LogLevel:         "info",
			LogFormat:        "text",
		},
	}
}

// run executes one fintrack invocation against the fake backend.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	r := &runner{open: func(ctx context.Context, notify func(listsync.Notice)) (*app.App, error) {
		return app.New(ctx, h.cfg, log.Discard(), app.WithStore(h.store), app.WithNotifier(notify))
	}}
	root := newRootCmd(r)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := execute(context.Background(), r, root)
	return out.String(), errOut.String(), err
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	out, _, err := h.run(t, "", "login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ada <ada@example.com>")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd(&runner{})
	assert.Equal(t, "fintrack", root.Use)
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "register", "whoami", "dashboard", "transactions", "budgets", "goals", "export"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"whoami"},
		{"dashboard"},
		{"transactions", "list"},
		{"budgets", "list"},
		{"goals", "list"},
	} {
		_, _, err := h.run(t, "", args...)
		assert.ErrorIs(t, err, app.ErrNotAuthenticated, "%v", args)
	}
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, _, err := h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada <ada@example.com>")

	out, _, err = h.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, _, err = h.run(t, "", "whoami")
	assert.ErrorIs(t, err, app.ErrNotAuthenticated)
}

func TestLoginPromptsForMissingFields(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "ada@example.com\nsecret1\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Email: ")
	assert.Contains(t, out, "Signed in as Ada")
}

func TestRegisterValidatesLocally(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, "", "register", "--name", "Bob", "--email", "bob@example.com", "--password", "abc", "--confirm-password", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters")
	assert.Zero(t, h.backend.Count(http.MethodPost, "/auth/register"))

	out, _, err := h.run(t, "", "register", "--name", "Bob", "--email", "bob@example.com", "--password", "abcdef", "--confirm-password", "abcdef")
	require.NoError(t, err)
	assert.Contains(t, out, "You can now sign in.")
}

func TestTransactionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, _, err := h.run(t, "", "transactions", "add",
		"--type", "expense", "--amount", "45.00", "--category", "3",
		"--date", "2024-01-05", "--description", "Groceries")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction saved")
	require.Len(t, h.backend.Transactions(), 1)
	id := h.backend.Transactions()[0].ID

	out, _, err = h.run(t, "", "transactions", "list", "--search", "grocer")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "-45.00")

	out, _, err = h.run(t, "", "transactions", "list", "--type", "income")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions found.")

	out, _, err = h.run(t, "n\n", "transactions", "delete", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Are you sure you want to delete this transaction? [y/N]")
	assert.Contains(t, out, "Cancelled")
	assert.Zero(t, h.backend.CountMethod(http.MethodDelete))

	out, _, err = h.run(t, "", "--yes", "transactions", "delete", itoa(id))
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction deleted")
	assert.Empty(t, h.backend.Transactions())
}

func TestTransactionCategoryMustMatchType(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, _, err := h.run(t, "", "transactions", "add",
		"--type", "income", "--amount", "10", "--category", "3", "--description", "oops")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Zero(t, h.backend.Count(http.MethodPost, "/transactions/"))
}

func TestFailedSavePrintsNotice(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.Fail(http.MethodPost, "/transactions/", http.StatusInternalServerError, "database is locked")

	_, errOut, err := h.run(t, "", "transactions", "add",
		"--type", "expense", "--amount", "5", "--category", "3", "--description", "Bus")
	require.Error(t, err)
	assert.Contains(t, errOut, "Failed to save transaction")
}

func TestBudgetTiers(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.AddBudget(core.Budget{CategoryID: 3, CategoryName: "Groceries", Amount: decimal.NewFromInt(100), Period: core.Monthly, Spent: decimal.NewFromInt(150)})
	h.backend.AddBudget(core.Budget{CategoryID: 4, CategoryName: "Rent", Amount: decimal.NewFromInt(100), Period: core.Monthly, Spent: decimal.NewFromInt(80)})

	out, _, err := h.run(t, "", "budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "150.0% over")
	assert.Contains(t, out, "80.0% normal")
	assert.Contains(t, out, "-50.00")

	out, _, err = h.run(t, "", "budgets", "set", "--category", "5", "--amount", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget saved")

	_, _, err = h.run(t, "", "budgets", "set", "--category", "1", "--amount", "60")
	assert.ErrorIs(t, err, core.ErrMissingCategory, "income categories cannot be budgeted")
}

func TestGoalContribution(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, _, err := h.run(t, "", "goals", "add", "--name", "Emergency Fund", "--target", "500", "--deadline", "2025-12-31")
	require.NoError(t, err)
	require.Len(t, h.backend.Goals(), 1)
	id := itoa(h.backend.Goals()[0].ID)

	for _, args := range [][]string{
		{"goals", "contribute", id, "-5"},
		{"--yes", "goals", "contribute", id, "-5"},
	} {
		_, _, err = h.run(t, "", args...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "Please enter a valid amount", "%v", args)
	}
	assert.Zero(t, h.backend.Count(http.MethodPost, "/goals/"+id+"/contribute"))

	out, _, err := h.run(t, "", "goals", "contribute", id, "500")
	require.NoError(t, err)
	assert.Contains(t, out, "100.0% complete")
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.AddTransaction(core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(1000), CategoryID: 1, Date: core.NewDate(2024, 1, 1), Description: "Pay"})
	h.backend.AddTransaction(core.Transaction{Type: core.Expense, Amount: decimal.NewFromInt(250), CategoryID: 3, CategoryName: "Groceries", Date: core.NewDate(2024, 1, 3), Description: "Food"})

	out, _, err := h.run(t, "", "dashboard", "--spending", "--trend", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "750.00")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Recent transactions")
	assert.Contains(t, out, "Monthly trend 2024")
	assert.Contains(t, out, "Jan")
}

func TestExportRequiresSpreadsheet(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	_, _, err := h.run(t, "", "export")
	assert.ErrorIs(t, err, errExportDisabled)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
