package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/export/sheets"
)

var errExportDisabled = errors.New("export is not configured: set GOOGLE_SPREADSHEET_ID")

func newExportCmd(r *runner) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions to a Google Sheets tab",
		Long: `Export replaces the configured sheet's contents with the transactions
matching the given filters, one row per transaction below a header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := r.app.Config
			if !cfg.ExportEnabled() {
				return errExportDisabled
			}
			spec, err := ff.spec()
			if err != nil {
				return err
			}
			s, err := r.transactions(cmd)
			if err != nil {
				return err
			}
			s.SetFilter(spec)

			exp, err := sheets.New(cmd.Context(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, r.app.Logger)
			if err != nil {
				return err
			}
			res, err := exp.Export(cmd.Context(), s.Visible(), s.Categories())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Exported %d transactions to %s", res.Rows, res.Range)))
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}
