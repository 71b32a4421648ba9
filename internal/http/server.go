// Package http serves the aggregated reports and the transaction endpoints
// as JSON.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"conti/internal/cache"
	clog "conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/trace"
	"conti/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// ReadinessCheck reports whether the ledger can be reached.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	reports  *services.ReportService
	txs      *services.TransactionService
	cache    *cache.QueryCache
	ready    ReadinessCheck
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	events   *clog.StructuredLogger
	pageSize int

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) { s.ready = check }
}

// WithCache exposes the query cache to the invalidation endpoint.
func WithCache(qc *cache.QueryCache) Option {
	return func(s *Server) { s.cache = qc }
}

func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 && n <= maxPageSize {
			s.pageSize = n
		}
	}
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Writes are rate limited per client; reads are not.
func NewServer(addr string, logger *clog.Logger, reports *services.ReportService, txs *services.TransactionService, opts ...Option) *Server {
	if logger == nil {
		logger = clog.New(clog.DefaultConfig())
	}
	logger = logger.WithComponent(clog.ComponentHTTP)

	s := &Server{
		reports:  reports,
		txs:      txs,
		events:   clog.NewStructuredLogger(logger),
		tracer:   trace.NewMiddleware(logger, extractClientIP),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /debug/metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("GET /api/reports/trend", s.handleTrend)
	mux.HandleFunc("GET /api/reports/{year}/descriptions", s.handleDescriptionTotals)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleUpdateAccounts)
	mux.HandleFunc("GET /api/descriptions", s.handleDescriptions)
	mux.HandleFunc("POST /api/descriptions", s.handleUpdateDescription)
	mux.HandleFunc("DELETE /api/descriptions/{id}", s.handleDeleteDescription)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/delete", s.handleDeleteTransactions)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/cache/invalidate", s.handleInvalidate)

	var h http.Handler = mux
	h = s.limiter.Middleware(extractClientIP, http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = securityHeaders(h)
	h = clog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)
	h = clog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters from the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
