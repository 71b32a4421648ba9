// Package api is the REST client for the ledger backend. It implements the
// ledger ports; every response body is validated by the schema package before
// it is returned.
package api

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/schema"
	"conti/internal/session"
)

const (
	maxResponseBytes = 10 << 20
	defaultPageSize  = 500
)

// ErrUnauthorized is returned after the backend rejected the token. The
// session has already been logged out when a caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, body)
}

// Unwrap maps the statuses the ledger ports name to their sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ledger.ErrNotFound
	case http.StatusConflict:
		return ledger.ErrConflict
	}
	return nil
}

type Client struct {
	baseURL  *url.URL
	http     *http.Client
	session  *session.Session
	pageSize int
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPageSize sets the page size used when ListTransactions walks the
// paginated listing.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New builds a client for baseURL. sess may be nil for unauthenticated use.
func New(baseURL string, sess *session.Session, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	c := &Client{
		baseURL:  u,
		http:     newHTTPClientWithPooling(timeout),
		session:  sess,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	slog.DebugContext(ctx, "Backend request",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.session != nil {
			if err := c.session.Logout(ctx); err != nil {
				slog.WarnContext(ctx, "Failed to clear session after 401", "error", err)
			}
		}
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// Login exchanges credentials for a token, starts the session with it and
// then replaces the token claims with the backend's user profile. A failed
// profile fetch leaves the session on the claims.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) error {
	if c.session == nil {
		return errors.New("login: client has no session")
	}
	body, err := schema.EncodeLogin(usernameOrEmail, password)
	if err != nil {
		return err
	}
	data, err := c.do(ctx, http.MethodPost, "/auth", nil, body)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	token, err := schema.ParseLoginResponse(data)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.session.Login(ctx, token, core.User{}); err != nil {
		return err
	}

	user, err := c.UserInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch user info after login", "error", err)
		return nil
	}
	return c.session.UpdateUser(ctx, user)
}

// UserInfo fetches the profile of the logged in user.
func (c *Client) UserInfo(ctx context.Context) (core.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/user-info", nil, nil)
	if err != nil {
		return core.User{}, fmt.Errorf("get user info: %w", err)
	}
	user, err := schema.ParseUserInfo(data)
	if err != nil {
		return core.User{}, fmt.Errorf("get user info: %w", err)
	}
	return user, nil
}

func (c *Client) ListPage(ctx context.Context, pageIndex, pageSize int) (core.Page, error) {
	q := url.Values{}
	q.Set("pageIndex", strconv.Itoa(pageIndex))
	q.Set("pageSize", strconv.Itoa(pageSize))
	data, err := c.do(ctx, http.MethodGet, "/transaction/list", q, nil)
	if err != nil {
		return core.Page{}, fmt.Errorf("list transactions page %d: %w", pageIndex, err)
	}
	p, err := schema.ParsePage(data)
	if err != nil {
		return core.Page{}, fmt.Errorf("list transactions page %d: %w", pageIndex, err)
	}
	return p, nil
}

// ListTransactions walks every page and returns the union, oldest first.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	list := core.NewTransactionList()
	for list.HasMore() {
		page, err := c.ListPage(ctx, list.NextPage(), c.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page.Transactions) == 0 {
			break
		}
		list.Append(page)
	}
	txs := list.Items()
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		if d := a.Date.Compare(b.Date.Time); d != 0 {
			return d
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return txs, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	data, err := c.do(ctx, http.MethodGet, "/transaction/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	tx, err := schema.ParseTransaction(data)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (c *Client) ListYears(ctx context.Context) ([]int, error) {
	data, err := c.do(ctx, http.MethodGet, "/transaction/years", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	years, err := schema.ParseYears(data)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	slices.Sort(years)
	return years, nil
}

func (c *Client) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return c.writeTransaction(ctx, http.MethodPost, "/transaction/add", tx)
}

func (c *Client) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return c.writeTransaction(ctx, http.MethodPut, "/transaction/update", tx)
}

func (c *Client) writeTransaction(ctx context.Context, method, path string, tx core.Transaction) (core.Transaction, error) {
	body, err := schema.EncodeTransaction(tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode transaction: %w", err)
	}
	data, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("write transaction: %w", err)
	}
	saved, err := schema.ParseTransaction(data)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("write transaction: %w", err)
	}
	return saved, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodDelete, "/transaction/delete/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteTransactions(ctx context.Context, items []core.Transaction) error {
	body, err := schema.EncodeDeleteItems(items)
	if err != nil {
		return fmt.Errorf("encode delete items: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/transaction/delete-transaction-list", nil, body); err != nil {
		return fmt.Errorf("delete %d transactions: %w", len(items), err)
	}
	return nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	data, err := c.do(ctx, http.MethodGet, "/totals", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := schema.ParseAccounts(data)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (c *Client) UpdateAccounts(ctx context.Context, accounts []core.Account) ([]core.Account, error) {
	body, err := schema.EncodeAccounts(accounts)
	if err != nil {
		return nil, fmt.Errorf("encode accounts: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/update-totals", nil, body)
	if err != nil {
		return nil, fmt.Errorf("update accounts: %w", err)
	}
	saved, err := schema.ParseAccounts(data)
	if err != nil {
		return nil, fmt.Errorf("update accounts: %w", err)
	}
	return saved, nil
}

func (c *Client) ListDescriptions(ctx context.Context, withOccurrences bool) ([]core.Description, error) {
	q := url.Values{}
	q.Set("occurrences", strconv.FormatBool(withOccurrences))
	data, err := c.do(ctx, http.MethodGet, "/description-list", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	descs, err := schema.ParseDescriptions(data)
	if err != nil {
		return nil, fmt.Errorf("list descriptions: %w", err)
	}
	return descs.All(), nil
}

func (c *Client) UpdateDescription(ctx context.Context, d core.Description) (core.Description, error) {
	body, err := schema.EncodeDescription(d)
	if err != nil {
		return core.Description{}, fmt.Errorf("encode description: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/update-description", nil, body)
	if err != nil {
		return core.Description{}, fmt.Errorf("update description: %w", err)
	}
	saved, err := schema.ParseDescription(data)
	if err != nil {
		return core.Description{}, fmt.Errorf("update description: %w", err)
	}
	return saved, nil
}

func (c *Client) DeleteDescription(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodDelete, "/delete-description/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("delete description %d: %w", id, err)
	}
	return nil
}

var _ ledger.Ledger = (*Client)(nil)
