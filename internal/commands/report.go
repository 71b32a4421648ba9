package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/sheets"
)

type reportOptions struct {
	year     int
	format   string
	seedFile string
}

func newReportCommand() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print annual summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q: must be table, json or yaml", opts.format)
			}
			a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), opts.seedFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return runReport(cmd.Context(), cmd.OutOrStdout(), a.reports, opts)
		},
	}

	cmd.Flags().IntVar(&opts.year, "year", 0, "only report this year (default: every year)")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, json or yaml")
	cmd.Flags().StringVar(&opts.seedFile, "file", "", "read transactions from a JSON seed file instead of the configured backend")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, reports *services.ReportService, opts reportOptions) error {
	var f core.TransactionFilter
	if opts.year != 0 {
		f.Years = []int{opts.year}
	}
	years, err := reports.Summaries(ctx, f)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(years)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(years); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	if len(years) == 0 {
		_, err := fmt.Fprintln(out, "no transactions")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, y := range years {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		for _, row := range sheets.BuildYearRows(y) {
			for j, cell := range row {
				if j > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, cell)
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}
