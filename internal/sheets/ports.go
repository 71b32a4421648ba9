// Package sheets renders annual reports as spreadsheet rows and defines the
// port the exporters implement.
package sheets

import (
	"context"

	"conti/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the content of the year's report sheet.
	ReportWriter interface {
		WriteYearReport(ctx context.Context, y core.YearSummary) (sheetName string, err error)
	}
)
