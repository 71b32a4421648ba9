package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"conti/internal/api"
	"conti/internal/core"
	"conti/internal/ledger"
	clog "conti/internal/log"
	"conti/internal/schema"
	"conti/internal/services"
)

type fieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type errorBody struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, schema.ErrInvalidPayload),
		errors.Is(err, services.ErrMissingID):
		return http.StatusBadRequest
	case len(schema.Fields(err)) > 0, core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrReadOnly):
		return http.StatusForbidden
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError logs server-side failures and hides their detail from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	for _, fe := range schema.Fields(err) {
		body.Fields = append(body.Fields, fieldError{Field: fe.Field, Reason: fe.Reason})
	}

	logger := clog.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "status_code", status)
		if status == http.StatusInternalServerError {
			body.Error = http.StatusText(status)
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "error", err, "status_code", status)
	}
	writeJSON(w, status, body)
}
