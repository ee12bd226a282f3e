package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

const barWidth = 20

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
)

func tierStyle(t aggregate.Tier) lipgloss.Style {
	switch t {
	case aggregate.TierOver:
		return errorStyle
	case aggregate.TierWarning:
		return warningStyle
	default:
		return okStyle
	}
}

// bar draws pct, already capped at 100, as a fixed width gauge.
func bar(pct decimal.Decimal) string {
	filled := int(pct.Mul(decimal.NewFromInt(barWidth)).Div(decimal.NewFromInt(100)).IntPart())
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func money(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

func signed(t core.Transaction) string {
	if t.Type == core.Income {
		return "+" + money(t.Amount)
	}
	return "-" + money(t.Amount)
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func categoryName(t core.Transaction, cats []core.Category) string {
	if t.CategoryName != "" {
		return t.CategoryName
	}
	if c, ok := core.FindCategory(cats, t.CategoryID); ok {
		return c.Name
	}
	return fmt.Sprintf("#%d", t.CategoryID)
}

func printTransactions(w io.Writer, txns []core.Transaction, cats []core.Category) {
	if len(txns) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No transactions found."))
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT")
	for _, t := range txns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Date, categoryName(t, cats), t.Description, signed(t))
	}
	tw.Flush()
}
