package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentWorker, Output: &buf}), &buf
}

func TestLogger_StampsComponent(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	l.Info("refresh done", "years", 2)

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "years=2") {
		t.Fatalf("unexpected log line: %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentSheets).Warn("slow export")
	if out := buf.String(); !strings.Contains(out, "component=sheets") || strings.Contains(out, "component=worker") {
		t.Fatalf("component not replaced: %q", out)
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelWarn)
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
	l, _ := newBufferLogger(slog.LevelInfo)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatal("expected the stored logger back")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("request id missing: %q", buf.String())
	}
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{422, "level=WARN"},
		{502, "level=ERROR"},
	}
	for _, tt := range tests {
		l, buf := newBufferLogger(slog.LevelDebug)
		r := httptest.NewRequest(http.MethodGet, "/api/reports?years=2024", nil)
		NewStructuredLogger(l).LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1", "req-7")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: want %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "component=http") || !strings.Contains(out, "query=years=2024") ||
			!strings.Contains(out, "request_id=req-7") {
			t.Errorf("status %d: missing fields in %q", tt.status, out)
		}
	}
}

func TestStructuredLogger_LedgerRecords(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(l)

	sl.LogTransactionCreated(context.Background(), 7, "Expense", "12.50")
	if out := buf.String(); !strings.Contains(out, "transaction_id=7") || !strings.Contains(out, "amount=12.50") {
		t.Fatalf("unexpected record: %q", out)
	}

	buf.Reset()
	sl.LogError(context.Background(), "Export failed", errors.New("quota"), ComponentSheets, OpExport, NewFields().WithPeriod(2024, 0))
	out := buf.String()
	for _, want := range []string{"error=quota", "operation=export", "year=2024", "component=sheets"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "month=") {
		t.Errorf("zero month should be omitted: %q", out)
	}
}
