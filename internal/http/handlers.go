package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"conti/internal/cache"
	clog "conti/internal/log"
	"conti/internal/schema"
)

const maxBodyBytes = 1 << 20

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			clog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	years, err := s.reports.Summaries(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleDescriptionTotals(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.reports.DescriptionTotals(r.Context(), year, r.URL.Query().Get("sort") == "total")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.reports.Trend(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.reports.Accounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleDescriptions(w http.ResponseWriter, r *http.Request) {
	descs, err := s.reports.Descriptions(r.Context(), r.URL.Query().Get("occurrences") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, descs)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	pageIndex, pageSize, err := ParsePageParams(r.URL.Query(), s.pageSize, maxPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.reports.Page(r.Context(), pageIndex, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	return body, nil
}

// handleCreateTransaction accepts the ledger backend's wire shape.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := schema.ParseNewTransaction(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.txs.AddTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogTransactionCreated(r.Context(), saved.ID, saved.Type.Label(), saved.Amount.String())
	w.Header().Set("Location", fmt.Sprintf("/api/transactions/%d", saved.ID))
	writeJSON(w, http.StatusCreated, saved)
}

// handleUpdateTransaction takes the id from the path. A body id, if sent,
// must agree with it.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := schema.ParseNewTransaction(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tx.ID != 0 && tx.ID != id {
		writeError(w, r, fmt.Errorf("%w: body id %d does not match path id %d", errBadRequest, tx.ID, id))
		return
	}
	tx.ID = id
	saved, err := s.txs.UpdateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteTransactions removes a batch given as delete items; the batch
// fails as a whole.
func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := schema.ParseDeleteItems(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.txs.DeleteTransactions(r.Context(), items); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.txs.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateAccounts renames or adds accounts. Entries without an id are
// created.
func (s *Server) handleUpdateAccounts(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := schema.ParseAccountUpdates(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.txs.UpdateAccounts(r.Context(), accounts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleUpdateDescription(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := schema.ParseDescription(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.txs.UpdateDescription(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteDescription(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.txs.DeleteDescription(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInvalidate drops cached reads for the given tags, or all of them.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var tags []cache.Tag
	for _, raw := range queryList(r.URL.Query(), "tags") {
		tag, err := cache.ParseTag(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = cache.AllTags()
	}
	removed := 0
	if s.cache != nil {
		removed = s.cache.Invalidate(tags...)
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
