package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lunabets/fairydust/internal/service"
)

// ParticipantHandler serves balance, daily reward, transfer, leaderboard,
// and history endpoints.
type ParticipantHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

// NewParticipantHandler creates a ParticipantHandler.
func NewParticipantHandler(ledger *service.LedgerService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		ledger: ledger,
		logger: logHandler(logger, "participant"),
	}
}

// GetParticipant returns a participant's account, creating it on first
// reference.
// GET /api/participants/{id}
func (h *ParticipantHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "participant id is required")
		return
	}

	p, err := h.ledger.Ensure(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ClaimDaily credits the participant's daily reward.
// POST /api/participants/{id}/daily
func (h *ParticipantHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "participant id is required")
		return
	}

	result, err := h.ledger.ClaimDaily(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reward":      result.Reward,
		"new_balance": result.NewBalance,
	})
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Transfer moves currency between two participants.
// POST /api/transfers
func (h *ParticipantHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	result, err := h.ledger.Transfer(r.Context(), req.From, req.To, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from_balance": result.FromBalance,
		"to_balance":   result.ToBalance,
	})
}

// Leaderboard returns the top participants by balance.
// GET /api/leaderboard
func (h *ParticipantHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	top, err := h.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": top,
	})
}

// History returns a participant's settled wager receipts.
// GET /api/participants/{id}/history
func (h *ParticipantHandler) History(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "participant id is required")
		return
	}

	history, err := h.ledger.History(r.Context(), id, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}
