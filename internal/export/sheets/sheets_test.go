package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

var categories = []core.Category{
	{ID: 1, Name: "Salary", Type: core.Income},
	{ID: 3, Name: "Groceries", Type: core.Expense},
}

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: 2, Type: core.Expense, Amount: decimal.RequireFromString("45"), CategoryID: 3, Date: core.NewDate(2024, 1, 5), Description: "Groceries"},
		{ID: 1, Type: core.Income, Amount: decimal.RequireFromString("1000.5"), CategoryID: 1, CategoryName: "Salary", Date: core.NewDate(2024, 1, 1), Description: "Pay", Notes: "January"},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sample(), categories)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []any{"2024-01-05", "expense", "Groceries", "Groceries", "45.00", ""}, rows[1])
	assert.Equal(t, []any{"2024-01-01", "income", "Salary", "Pay", "1000.50", "January"}, rows[2])

	assert.Equal(t, [][]any{Header}, Rows(nil, nil))
}

func TestRowsUnknownCategory(t *testing.T) {
	rows := Rows([]core.Transaction{{Type: core.Expense, Amount: decimal.NewFromInt(1), CategoryID: 42, Date: core.NewDate(2024, 1, 1)}}, categories)
	assert.Equal(t, "", rows[1][2])
}

type fakeSheets struct {
	mu      sync.Mutex
	calls   []string
	updated [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updated = vr.Values
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Transactions!A1:F3","updatedRows":3}`))
	default:
		http.NotFound(w, r)
	}
}

func newFake(t *testing.T) (*fakeSheets, *gsheet.Service) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	require.NoError(t, err)
	return fake, svc
}

func TestExport(t *testing.T) {
	fake, svc := newFake(t)
	exp := NewWithService(svc, "sheet-1", "", log.Discard())

	res, err := exp.Export(context.Background(), sample(), categories)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, "Transactions!A1:F3", res.Range)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, fake.calls, "clear then write")
	require.Len(t, fake.updated, 3)
	assert.Equal(t, "Date", fake.updated[0][0])
	assert.Equal(t, "45.00", fake.updated[1][4])
}

func TestExportWithoutService(t *testing.T) {
	_, err := (&Exporter{}).Export(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	_, err := New(context.Background(), "", "", nil)
	assert.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err = New(context.Background(), "sheet-1", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/creds.json")
	_, err = New(context.Background(), "sheet-1", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}
