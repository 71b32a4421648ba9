package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger/memory"
	clog "conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/services"
)

const seed = `{
  "totals": [
    {"id": 1, "description": "Checking", "amount": 1000, "canDelete": false},
    {"id": 2, "description": "Cash", "amount": 0, "canDelete": true}
  ],
  "descriptions": {
    "earningDescription": [{"id": 1, "type": "ENTRATA", "description": "Salary"}],
    "expenseDescription": [{"id": 2, "type": "USCITA", "description": "Groceries"}, {"id": 3, "type": "USCITA", "description": "Rent"}]
  },
  "transactions": [
    {"id": 1, "type": "ENTRATA", "amount": 100, "description": "Salary", "date": "2024-03-15", "bill": {"id": 1}},
    {"id": 2, "type": "USCITA", "amount": 40, "description": "Groceries", "date": "2024-03-02", "bill": {"id": 1}},
    {"id": 3, "type": "PRELIEVO", "amount": 50, "date": "2024-03-20", "bill": {"id": 2}, "billFromWhichWithdraw": {"id": 1}},
    {"id": 4, "type": "USCITA", "amount": 700, "description": "Rent", "date": "2023-11-01", "bill": {"id": 1}}
  ]
}`

type testServer struct {
	*httptest.Server
	qc *cache.QueryCache
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	store, err := memory.NewFromJSON([]byte(seed))
	require.NoError(t, err)

	qc := cache.NewQueryCache(32, time.Minute)
	reports := services.NewReportService(store, qc)
	txs := services.NewTransactionService(store, qc, nil)
	logger := clog.New(clog.Config{Output: io.Discard})

	opts = append([]Option{WithCache(qc)}, opts...)
	s := NewServer("", logger, reports, txs, opts...)
	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return &testServer{Server: srv, qc: qc}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	down := newTestServer(t, WithReadiness(func(context.Context) error { return errors.New("backend down") }))
	resp, _ = down.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var years []map[string]any
	require.NoError(t, json.Unmarshal(body, &years))
	require.Len(t, years, 2)
	assert.EqualValues(t, 2023, years[0]["year"])
	assert.EqualValues(t, 2024, years[1]["year"])
	assert.Equal(t, "60.00", years[1]["net"])
	assert.Equal(t, "50.00", years[1]["totalWithdrawals"])

	resp, body = ts.do(t, http.MethodGet, "/api/reports?years=2024&types=expense", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	years = nil
	require.NoError(t, json.Unmarshal(body, &years))
	require.Len(t, years, 1)
	assert.Equal(t, "0.00", years[0]["totalEarnings"])
	assert.Equal(t, "40.00", years[0]["totalExpenses"])

	resp, _ = ts.do(t, http.MethodGet, "/api/reports?months=13", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDescriptionTotalsAndTrend(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/reports/2024/descriptions?sort=total", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var totals core.YearDescriptionTotals
	require.NoError(t, json.Unmarshal(body, &totals))
	assert.Equal(t, 2024, totals.Year)
	require.Len(t, totals.Expenses, 1)
	assert.Equal(t, "Groceries", totals.Expenses[0].Description)

	resp, body = ts.do(t, http.MethodGet, "/api/reports/1999/descriptions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"year":1999,"earnings":[],"expenses":[],"totalEarnings":"0.00","totalExpenses":"0.00"}`, string(body))

	resp, _ = ts.do(t, http.MethodGet, "/api/reports/abc/descriptions", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/api/reports/trend", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trend core.Trend
	require.NoError(t, json.Unmarshal(body, &trend))
	assert.Equal(t, 2024, trend.BestYear)
	assert.Equal(t, 2023, trend.WorstYear)
}

func TestTransactionsLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/transactions?pageIndex=0&pageSize=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page core.Page
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 4, page.TotalCount)
	assert.Len(t, page.Transactions, 2)

	// Warm the cache so the write has something to invalidate.
	ts.do(t, http.MethodGet, "/api/reports", "")

	resp, body = ts.do(t, http.MethodPost, "/api/transactions",
		`{"type":"USCITA","amount":"12.50","description":"Groceries","date":"2024-04-01","bill":{"id":1}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created core.Transaction
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "12.50", created.Amount.String())
	assert.NotZero(t, created.ID)

	resp, body = ts.do(t, http.MethodGet, "/api/reports?years=2024&months=4", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"totalExpenses":"12.50"`)

	resp, _ = ts.do(t, http.MethodDelete, "/api/transactions/"+jsonInt(created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/transactions/"+jsonInt(created.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateTransaction(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/reports?years=2024", "")

	resp, body := ts.do(t, http.MethodPut, "/api/transactions/2",
		`{"type":"USCITA","amount":"45","description":"Groceries","date":"2024-03-02","bill":{"id":1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated core.Transaction
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.EqualValues(t, 2, updated.ID)
	assert.Equal(t, "45.00", updated.Amount.String())

	resp, body = ts.do(t, http.MethodGet, "/api/reports?years=2024", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"totalExpenses":"45.00"`)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"id mismatch", "/api/transactions/2", `{"id":3,"type":"USCITA","amount":"1","date":"2024-01-01","bill":{"id":1}}`, http.StatusBadRequest},
		{"bad path id", "/api/transactions/abc", `{}`, http.StatusBadRequest},
		{"unknown transaction", "/api/transactions/99", `{"type":"USCITA","amount":"1","date":"2024-01-01","bill":{"id":1}}`, http.StatusNotFound},
		{"invalid body", "/api/transactions/2", `{"type":"USCITA","date":"2024-01-01","bill":{"id":1}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestDeleteTransactionsBatch(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/transactions/delete",
		`[{"id":1,"type":"ENTRATA","amount":100,"bill":{"id":1}},{"id":99,"type":"USCITA","amount":1,"bill":{"id":1}}]`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
	assertTotalCount(t, ts, 4)

	resp, body = ts.do(t, http.MethodPost, "/api/transactions/delete", `[1,2]`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	require.NotEmpty(t, eb.Fields)
	assert.Equal(t, "[0]", eb.Fields[0].Field)

	resp, body = ts.do(t, http.MethodPost, "/api/transactions/delete",
		`[{"id":1,"type":"ENTRATA","amount":100,"bill":{"id":1}},`+
			`{"id":3,"type":"PRELIEVO","amount":50,"bill":{"id":2},"billFromWhichWithdraw":{"id":1}}]`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))
	assertTotalCount(t, ts, 2)
}

func assertTotalCount(t *testing.T, ts *testServer, want int) {
	t.Helper()
	resp, body := ts.do(t, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page core.Page
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, want, page.TotalCount)
}

func TestUpdateAccounts(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/accounts",
		`[{"id":2,"description":"Wallet","amount":0,"canDelete":true},{"description":"Savings","amount":"250"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var accounts []core.Account
	require.NoError(t, json.Unmarshal(body, &accounts))
	require.Len(t, accounts, 3)
	var names []string
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"Checking", "Wallet", "Savings"}, names)

	resp, _ = ts.do(t, http.MethodPost, "/api/accounts", `[{"id":5,"description":"Ghost","amount":0}]`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/accounts", `[{"id":1,"amount":0}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDescriptionWrites(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/descriptions", `{"id":2,"type":"USCITA","description":"Food"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"description":"Food"`)

	resp, body = ts.do(t, http.MethodGet, "/api/transactions?pageSize=10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"description":"Food"`)
	assert.NotContains(t, string(body), `"description":"Groceries"`)

	resp, body = ts.do(t, http.MethodPost, "/api/descriptions", `{"type":"USCITA","description":"Food"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	// Rent is still used by transaction 4.
	resp, _ = ts.do(t, http.MethodDelete, "/api/descriptions/3", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/transactions/4", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/api/descriptions/3", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/api/descriptions/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", "")
	ts.do(t, http.MethodGet, "/api/transactions/abc", "")

	resp, body := ts.do(t, http.MethodGet, "/debug/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"totalRequests":3,"serverErrors":0}`, string(body))
}

func TestCreateTransactionErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		status    int
		wantField string
	}{
		{"malformed json", `{`, http.StatusBadRequest, ""},
		{"unknown type", `{"type":"NOPE","amount":"1","date":"2024-01-01","bill":{"id":1}}`, http.StatusUnprocessableEntity, "type"},
		{"unknown account", `{"type":"USCITA","amount":"1","date":"2024-01-01","bill":{"id":99}}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			var eb errorBody
			require.NoError(t, json.Unmarshal(body, &eb))
			assert.NotEmpty(t, eb.Error)
			if tt.wantField != "" {
				require.NotEmpty(t, eb.Fields)
				assert.Equal(t, tt.wantField, eb.Fields[0].Field)
			}
		})
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(ratelimit.Config{RequestsPerMinute: 1}))

	resp, _ := ts.do(t, http.MethodDelete, "/api/transactions/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/api/transactions/2", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPut, "/api/transactions/3", "{}")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/accounts", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/accounts", "")
	ts.do(t, http.MethodGet, "/api/descriptions?occurrences=true", "")
	require.Equal(t, 2, ts.qc.Size())

	resp, body := ts.do(t, http.MethodPost, "/api/cache/invalidate?tags=Totals", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"removed":1}`, string(body))

	resp, _ = ts.do(t, http.MethodPost, "/api/cache/invalidate?tags=Bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
