package commands

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/sheets"
	gsheet "conti/internal/sheets/google"
	"conti/internal/sheets/memory"
)

var errNoYears = errors.New("no transactions to export")

func newExportCommand() *cobra.Command {
	var (
		year     int
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an annual report to Google Sheets",
		Long: "Export an annual report to Google Sheets.\n\n" +
			"Without GOOGLE_SPREADSHEET_ID the sheet rows are printed as CSV instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd.ErrOrStderr(), seedFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.cfg.SheetsEnabled() {
				w := memory.New()
				name, err := runExport(ctx, a.reports, w, year)
				if err != nil {
					return err
				}
				rows, _ := w.Sheet(name)
				return writeCSV(cmd.OutOrStdout(), rows)
			}

			client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
				SpreadsheetID:      a.cfg.GoogleSpreadsheetID,
				ServiceAccountJSON: a.cfg.GoogleServiceAccountJSON,
				ServiceAccountFile: a.cfg.GoogleServiceAccountFile,
			})
			if err != nil {
				return fmt.Errorf("init Google Sheets client: %w", err)
			}
			name, err := runExport(ctx, a.reports, client, year)
			if err != nil {
				return err
			}
			a.logger.Info("Exported report", "sheet", name, "spreadsheet_id", a.cfg.GoogleSpreadsheetID)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %q\n", name)
			return err
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year to export (default: the latest year with transactions)")
	cmd.Flags().StringVar(&seedFile, "file", "", "read transactions from a JSON seed file instead of the configured backend")

	return cmd
}

// runExport writes the summary of year, or of the latest year when year is 0.
// A year without transactions still gets a sheet with zero totals.
func runExport(ctx context.Context, reports *services.ReportService, w sheets.ReportWriter, year int) (string, error) {
	if year == 0 {
		years, err := reports.Years(ctx)
		if err != nil {
			return "", fmt.Errorf("list years: %w", err)
		}
		if len(years) == 0 {
			return "", errNoYears
		}
		year = slices.Max(years)
	}

	summaries, err := reports.Summaries(ctx, core.TransactionFilter{Years: []int{year}})
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	summary := core.YearSummary{Year: year, Months: []core.MonthSummary{}}
	if len(summaries) > 0 {
		summary = summaries[0]
	}

	name, err := w.WriteYearReport(ctx, summary)
	if err != nil {
		return "", fmt.Errorf("export year %d: %w", year, err)
	}
	return name, nil
}

func writeCSV(out io.Writer, rows [][]string) error {
	cw := csv.NewWriter(out)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
