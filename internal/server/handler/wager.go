package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/service"
)

// WagerHandler serves wager placement and the confirm/cancel signal
// endpoints. Placement is a long poll: the request blocks until the staged
// wager is confirmed, cancelled, or times out.
type WagerHandler struct {
	wagers *service.WagerService
	logger *slog.Logger
}

// NewWagerHandler creates a WagerHandler.
func NewWagerHandler(wagers *service.WagerService, logger *slog.Logger) *WagerHandler {
	return &WagerHandler{
		wagers: wagers,
		logger: logHandler(logger, "wager"),
	}
}

type placeWagerRequest struct {
	ParticipantID string `json:"participant_id"`
	MarketID      int64  `json:"market_id"`
	OutcomeIndex  int    `json:"outcome_index"`
	Amount        int64  `json:"amount"`
}

// PlaceWager stages a wager and blocks until its confirmation signal
// arrives or the window expires. The staged token is pushed to the
// presentation layer, not returned here; whoever renders the confirmation
// prompt echoes it back via the confirm or cancel endpoint.
// POST /api/wagers
func (h *WagerHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	var req placeWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	placed, err := h.wagers.Place(r.Context(), req.ParticipantID, req.MarketID, req.OutcomeIndex, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"wager":       placed.Wager,
		"new_balance": placed.NewBalance,
	})
}

// ConfirmWager delivers the confirm signal for a staged wager token.
// POST /api/wagers/{token}/confirm
func (h *WagerHandler) ConfirmWager(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, domain.SignalConfirm)
}

// CancelWager delivers the cancel signal for a staged wager token.
// POST /api/wagers/{token}/cancel
func (h *WagerHandler) CancelWager(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, domain.SignalCancel)
}

func (h *WagerHandler) signal(w http.ResponseWriter, r *http.Request, action domain.SignalAction) {
	token := pathParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.wagers.Signal(r.Context(), token, action); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":  token,
		"action": string(action),
	})
}

// ListOpenWagers returns a participant's open wagers across all markets.
// GET /api/participants/{id}/wagers
func (h *WagerHandler) ListOpenWagers(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "participant id is required")
		return
	}

	wagers, err := h.wagers.OpenWagers(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wagers": wagers,
		"count":  len(wagers),
	})
}
