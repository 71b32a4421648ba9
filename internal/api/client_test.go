package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/schema"
	"conti/internal/session"
)

const txJSON = `{"id":%d,"type":"USCITA","amount":%q,"description":"Groceries","date":%q,"bill":{"id":1,"description":"Checking"}}`

func testToken() string {
	payload, _ := json.Marshal(map[string]any{"username": "anna", "person_id": 7})
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".s"
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess := session.New(nil)
	c, err := New(srv.URL, sess, 5*time.Second, opts...)
	require.NoError(t, err)
	return c, sess
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://x"} {
		_, err := New(raw, nil, time.Second)
		assert.Error(t, err, raw)
	}
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	token := testToken()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "anna", body["usernameOrEmail"])
		assert.Equal(t, "secret", body["password"])
		fmt.Fprintf(w, `{"token":%q}`, token)
	})
	mux.HandleFunc("GET /user-info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		io.WriteString(w, `{"person_id":7,"email":"anna@example.com","username":"anna","role":"USER","provider":"local","firstname":"Anna"}`)
	})
	mux.HandleFunc("GET /transaction/years", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		io.WriteString(w, `["2024","2023"]`)
	})

	c, sess := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "anna", "secret"))

	u, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, core.User{PersonID: 7, Email: "anna@example.com", Username: "anna", Role: "USER", Provider: "local"}, u)

	years, err := c.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, years)
}

func TestUnauthorizedLogsOut(t *testing.T) {
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, testToken(), core.User{}))

	_, err := c.ListAccounts(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, sess.IsAuthenticated())
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ledger.ErrNotFound},
		{"conflict", http.StatusConflict, ledger.ErrConflict},
		{"server error", http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", tt.status)
			}))
			_, err := c.GetTransaction(context.Background(), 9)
			var se *StatusError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.status, se.Code)
			assert.Contains(t, se.Body, "boom")
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.False(t, errors.Is(err, ledger.ErrNotFound))
			}
		})
	}
}

func TestMalformedResponseIsValidationError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":3,"type":"BONIFICO","amount":"1.00","date":"2024-01-01","bill":{"id":1}}`)
	}))
	_, err := c.GetTransaction(context.Background(), 3)
	require.Error(t, err)
	fields := schema.Fields(err)
	require.NotEmpty(t, fields)
	assert.Equal(t, "type", fields[0].Field)
}

func TestListTransactionsWalksPages(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		idx, _ := strconv.Atoi(r.URL.Query().Get("pageIndex"))
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		var items []string
		switch idx {
		case 0:
			items = []string{fmt.Sprintf(txJSON, 3, "3.00", "2024-03-01"), fmt.Sprintf(txJSON, 2, "2.00", "2024-02-01")}
		case 1:
			// Overlaps the previous page, as happens when rows shift between requests.
			items = []string{fmt.Sprintf(txJSON, 2, "2.00", "2024-02-01"), fmt.Sprintf(txJSON, 1, "1.00", "2024-01-01")}
		}
		fmt.Fprintf(w, `{"transactions":[%s],"totalCount":3,"pageIndex":%d,"pageSize":2}`, strings.Join(items, ","), idx)
	}), WithPageSize(2))

	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{txs[0].ID, txs[1].ID, txs[2].ID})
	assert.Equal(t, 2, calls)
}

func TestListTransactionsStopsOnEmptyPage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"transactions":[],"totalCount":10,"pageIndex":0,"pageSize":50}`)
	}))
	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestAddTransactionSendsWireJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		assert.Equal(t, "USCITA", body["type"])
		assert.Equal(t, 12.5, body["amount"])
		fmt.Fprintf(w, txJSON, 41, "12.50", "2024-05-02")
	}))

	saved, err := c.AddTransaction(context.Background(), core.Transaction{
		Type:        core.Expense,
		Amount:      core.Money{Cents: 1250},
		Description: "Groceries",
		Date:        core.NewDate(2024, 5, 2),
		Account:     core.AccountRef{ID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), saved.ID)
	assert.Equal(t, int64(1250), saved.Amount.Cents)
}

func TestDescriptionsAndAccounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /description-list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("occurrences"))
		io.WriteString(w, `{"earningDescription":[{"id":1,"type":"ENTRATA","description":"Salary","occurrences":2}],
			"expenseDescription":[{"id":2,"type":"USCITA","description":"Rent"}]}`)
	})
	mux.HandleFunc("GET /totals", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"description":"Checking","amount":"-12.30","canDelete":false}]`)
	})
	mux.HandleFunc("DELETE /delete-description/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	descs, err := c.ListDescriptions(ctx, true)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, 2, descs[0].Occurrences)
	assert.Equal(t, core.Expense, descs[1].Type)

	accounts, err := c.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(-1230), accounts[0].Balance.Cents)

	require.NoError(t, c.DeleteDescription(ctx, 2))
}

func TestLoginKeepsClaimsWhenUserInfoFails(t *testing.T) {
	token := testToken()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q}`, token)
	})
	mux.HandleFunc("GET /user-info", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c, sess := newTestClient(t, mux)
	require.NoError(t, c.Login(context.Background(), "anna", "secret"))
	u, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, core.User{PersonID: 7, Username: "anna"}, u)
}

func TestLoginRejectedCredentials(t *testing.T) {
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	err := c.Login(context.Background(), "anna", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, sess.IsAuthenticated())
}

// TestEndpointContract pins the method, path, query and body of every
// backend call to the REST contract of the ledger backend.
func TestEndpointContract(t *testing.T) {
	const (
		txResp    = `{"id":5,"type":"USCITA","amount":12.5,"description":"Groceries","date":"2024-05-02","bill":{"id":1}}`
		totalResp = `[{"id":1,"description":"Checking","amount":10,"canDelete":false}]`
	)
	expense := core.Transaction{
		Type:        core.Expense,
		Amount:      core.Money{Cents: 1250},
		Description: "Groceries",
		Date:        core.NewDate(2024, 5, 2),
		Account:     core.AccountRef{ID: 1},
	}
	stored := expense
	stored.ID = 5

	tests := []struct {
		name     string
		call     func(context.Context, *Client) error
		method   string
		path     string
		query    string
		body     string
		response string
	}{
		{
			name:     "list page",
			call:     func(ctx context.Context, c *Client) error { _, err := c.ListPage(ctx, 0, 10); return err },
			method:   http.MethodGet,
			path:     "/transaction/list",
			query:    "pageIndex=0&pageSize=10",
			response: `{"transactions":[],"totalCount":0,"pageIndex":0,"pageSize":10}`,
		},
		{
			name:     "get transaction",
			call:     func(ctx context.Context, c *Client) error { _, err := c.GetTransaction(ctx, 5); return err },
			method:   http.MethodGet,
			path:     "/transaction/5",
			response: txResp,
		},
		{
			name:     "list years",
			call:     func(ctx context.Context, c *Client) error { _, err := c.ListYears(ctx); return err },
			method:   http.MethodGet,
			path:     "/transaction/years",
			response: `["2024"]`,
		},
		{
			name:     "add transaction",
			call:     func(ctx context.Context, c *Client) error { _, err := c.AddTransaction(ctx, expense); return err },
			method:   http.MethodPost,
			path:     "/transaction/add",
			body:     `{"type":"USCITA","amount":12.50,"description":"Groceries","date":"2024-05-02","bill":{"id":1}}`,
			response: txResp,
		},
		{
			name:     "update transaction",
			call:     func(ctx context.Context, c *Client) error { _, err := c.UpdateTransaction(ctx, stored); return err },
			method:   http.MethodPut,
			path:     "/transaction/update",
			body:     `{"id":5,"type":"USCITA","amount":12.50,"description":"Groceries","date":"2024-05-02","bill":{"id":1}}`,
			response: txResp,
		},
		{
			name:   "delete transaction",
			call:   func(ctx context.Context, c *Client) error { return c.DeleteTransaction(ctx, 5) },
			method: http.MethodDelete,
			path:   "/transaction/delete/5",
		},
		{
			name: "delete transaction list",
			call: func(ctx context.Context, c *Client) error {
				return c.DeleteTransactions(ctx, []core.Transaction{
					stored,
					{ID: 6, Type: core.Withdrawal, Amount: core.Money{Cents: 5000}, Account: core.AccountRef{ID: 2}, SourceAccount: &core.AccountRef{ID: 1}},
				})
			},
			method: http.MethodPost,
			path:   "/transaction/delete-transaction-list",
			body: `[
				{"id":5,"type":"USCITA","amount":12.50,"bill":{"id":1}},
				{"id":6,"type":"PRELIEVO","amount":50.00,"bill":{"id":2},"billFromWhichWithdraw":{"id":1}}
			]`,
		},
		{
			name:     "list totals",
			call:     func(ctx context.Context, c *Client) error { _, err := c.ListAccounts(ctx); return err },
			method:   http.MethodGet,
			path:     "/totals",
			response: totalResp,
		},
		{
			name: "update totals",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateAccounts(ctx, []core.Account{{ID: 1, Name: "Checking", Balance: core.Money{Cents: 1000}}})
				return err
			},
			method:   http.MethodPost,
			path:     "/update-totals",
			body:     `[{"id":1,"amount":10.00,"description":"Checking","canDelete":false}]`,
			response: totalResp,
		},
		{
			name:     "list descriptions",
			call:     func(ctx context.Context, c *Client) error { _, err := c.ListDescriptions(ctx, false); return err },
			method:   http.MethodGet,
			path:     "/description-list",
			query:    "occurrences=false",
			response: `{"earningDescription":[],"expenseDescription":[]}`,
		},
		{
			name: "update description",
			call: func(ctx context.Context, c *Client) error {
				_, err := c.UpdateDescription(ctx, core.Description{ID: 2, Type: core.Expense, Text: "Rent"})
				return err
			},
			method:   http.MethodPost,
			path:     "/update-description",
			body:     `{"id":2,"type":"USCITA","description":"Rent"}`,
			response: `{"id":2,"type":"USCITA","description":"Rent"}`,
		},
		{
			name:   "delete description",
			call:   func(ctx context.Context, c *Client) error { return c.DeleteDescription(ctx, 2) },
			method: http.MethodDelete,
			path:   "/delete-description/2",
		},
		{
			name:     "user info",
			call:     func(ctx context.Context, c *Client) error { _, err := c.UserInfo(ctx); return err },
			method:   http.MethodGet,
			path:     "/user-info",
			response: `{"person_id":7,"email":"anna@example.com","username":"anna","role":"USER","provider":"local"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, tt.query, r.URL.RawQuery)
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				if tt.body == "" {
					assert.Empty(t, body)
				} else {
					assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
					assert.JSONEq(t, tt.body, string(body))
				}
				io.WriteString(w, tt.response)
			}))

			require.NoError(t, tt.call(context.Background(), c))
			assert.Equal(t, 1, calls)
		})
	}
}
