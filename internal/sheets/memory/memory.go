// Package memory is a ReportWriter that keeps exported sheets in process.
// It backs the export command when no spreadsheet is configured and the
// worker tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"conti/internal/core"
	ports "conti/internal/sheets"
)

type Writer struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes int
}

var _ ports.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{sheets: make(map[string][][]string)}
}

// WriteYearReport replaces the sheet for the year.
func (w *Writer) WriteYearReport(_ context.Context, y core.YearSummary) (string, error) {
	name := ports.SheetName(y.Year)
	rows := ports.BuildYearRows(y)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[name] = rows
	w.writes++
	return name, nil
}

// Sheet returns a copy of the rows last written under name.
func (w *Writer) Sheet(name string) ([][]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[name]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Names lists the written sheets in sorted order.
func (w *Writer) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.sheets))
	for n := range w.sheets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Writes counts WriteYearReport calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
