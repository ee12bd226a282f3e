// Package sheets writes a transaction snapshot to a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Header is the first row of every export.
var Header = []any{"Date", "Type", "Category", "Description", "Amount", "Notes"}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// Result describes a completed export.
type Result struct {
	Range string
	Rows  int
}

// New creates an exporter authenticated with service account credentials.
func New(ctx context.Context, spreadsheetID, sheet string, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsJSON(ctx, log.OrDiscard(logger))
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheet, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Exporter {
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        log.OrDiscard(logger).WithComponent(log.ComponentExport),
	}
}

// credentialsJSON reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentialsJSON(ctx context.Context, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Rows renders txns below the header. Category names fall back to the
// categories list when the transaction does not carry one.
func Rows(txns []core.Transaction, categories []core.Category) [][]any {
	rows := make([][]any, 0, len(txns)+1)
	rows = append(rows, Header)
	for _, t := range txns {
		name := t.CategoryName
		if name == "" {
			if c, ok := core.FindCategory(categories, t.CategoryID); ok {
				name = c.Name
			}
		}
		rows = append(rows, []any{
			t.Date.String(),
			string(t.Type),
			name,
			t.Description,
			core.FormatAmount(t.Amount),
			t.Notes,
		})
	}
	return rows
}

// Export replaces the sheet's contents with txns.
func (e *Exporter) Export(ctx context.Context, txns []core.Transaction, categories []core.Category) (Result, error) {
	if e.svc == nil {
		return Result{}, errors.New("sheets service not initialized")
	}
	rows := Rows(txns, categories)

	clearRange := fmt.Sprintf("%s!A:F", e.sheet)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return Result{}, fmt.Errorf("failed to clear %s: %w", clearRange, err)
	}

	rng := fmt.Sprintf("%s!A1:F%d", e.sheet, len(rows))
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("failed to update %s: %w", rng, err)
	}

	res := Result{Range: rng, Rows: len(txns)}
	if resp.UpdatedRange != "" {
		res.Range = resp.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Transactions exported",
		log.FieldOperation, log.OpExport, log.FieldCount, res.Rows, "range", res.Range)
	return res, nil
}
