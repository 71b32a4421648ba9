package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"conti/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  []string
	updated  map[string][][]string
	failGets bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sid"):
		if f.failGets {
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
			return
		}
		type props struct {
			Title string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		var out struct {
			Sheets []sheet `json:"sheets"`
		}
		for _, t := range f.titles {
			out.Sheets = append(out.Sheets, sheet{Properties: props{Title: t}})
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/v4/spreadsheets/sid:batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, rangeOf(path))
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
			http.Error(w, "bad valueInputOption "+got, http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]string `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		if f.updated == nil {
			f.updated = make(map[string][][]string)
		}
		f.updated[rangeOf(path)] = vr.Values
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func rangeOf(path string) string {
	_, rng, _ := strings.Cut(path, "/values/")
	return strings.TrimSuffix(rng, ":clear")
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return New(svc, "sid")
}

func sampleYear(t *testing.T) core.YearSummary {
	t.Helper()
	years, err := core.Aggregate([]core.Transaction{
		{ID: 1, Type: core.Income, Amount: core.Money{Cents: 10000}, Description: "Salary", Date: core.NewDate(2024, 3, 1), Account: core.AccountRef{ID: 1}},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return years[0]
}

func TestWriteYearReport_CreatesSheetAndWritesRows(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	name, err := c.WriteYearReport(context.Background(), sampleYear(t))
	if err != nil {
		t.Fatalf("WriteYearReport: %v", err)
	}
	if name != "2024 Report" {
		t.Fatalf("sheet name = %q", name)
	}
	if len(fake.added) != 1 || fake.added[0] != "2024 Report" {
		t.Fatalf("added sheets = %v", fake.added)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "'2024 Report'!A:D" {
		t.Fatalf("cleared = %v", fake.cleared)
	}
	rows := fake.updated["'2024 Report'!A1"]
	if len(rows) == 0 || rows[0][0] != "Month" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[1][1] != "Salary" || rows[1][3] != "100.00" {
		t.Fatalf("unexpected first data row: %v", rows[1])
	}
}

func TestWriteYearReport_ReusesExistingSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"2024 Report"}}
	c := newTestClient(t, fake)

	if _, err := c.WriteYearReport(context.Background(), sampleYear(t)); err != nil {
		t.Fatalf("WriteYearReport: %v", err)
	}
	if len(fake.added) != 0 {
		t.Fatalf("sheet should not be re-added: %v", fake.added)
	}
}

func TestWriteYearReport_APIError(t *testing.T) {
	fake := &fakeSheets{failGets: true}
	c := newTestClient(t, fake)

	_, err := c.WriteYearReport(context.Background(), sampleYear(t))
	if err == nil || !strings.Contains(err.Error(), "get spreadsheet") {
		t.Fatalf("expected get spreadsheet error, got %v", err)
	}
}

func TestNewFromConfig_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	got, err := loadCredentials(ctx, Config{ServiceAccountJSON: ` {"type":"service_account"} `})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline: got %q err=%v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = loadCredentials(ctx, Config{ServiceAccountFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file: got %q err=%v", got, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := loadCredentials(ctx, Config{}); err != nil {
		t.Fatalf("ADC fallback: %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := loadCredentials(ctx, Config{}); err == nil {
		t.Fatal("expected missing credentials error")
	}
	if _, err := loadCredentials(ctx, Config{ServiceAccountFile: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected read error")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"2024 Report": "'2024 Report'",
		"Anna's":      "'Anna''s'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
