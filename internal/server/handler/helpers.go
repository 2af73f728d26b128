package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lunabets/fairydust/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// statusFromError maps domain errors onto HTTP status codes so handlers
// share one translation.
func statusFromError(err error) int {
	var probErr *domain.InvalidProbabilityError
	var tsErr *domain.InvalidTimestampError

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflictOfInterest):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateWager),
		errors.Is(err, domain.ErrMarketLocked),
		errors.Is(err, domain.ErrMarketNotLocked),
		errors.Is(err, domain.ErrWagerCancelled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConfirmationTimedOut):
		return http.StatusRequestTimeout
	case errors.Is(err, domain.ErrDailyAlreadyClaimed):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.As(err, &probErr),
		errors.As(err, &tsErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError sends the error with its mapped status. Internal errors
// are masked; everything else surfaces its message to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}
