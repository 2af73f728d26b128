package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lunabets/fairydust/internal/odds"
	"github.com/lunabets/fairydust/internal/service"
)

// MarketHandler serves market lifecycle endpoints. Creation, locking, odds
// updates, resolution, and annulment are operator actions; listing and
// lookup are open to all callers behind the API middleware.
type MarketHandler struct {
	markets  *service.MarketService
	resolver *service.ResolverService
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets *service.MarketService, resolver *service.ResolverService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:  markets,
		resolver: resolver,
		logger:   logHandler(logger, "market"),
	}
}

type createMarketRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Outcomes    string   `json:"outcomes"`
	LockTime    string   `json:"lock_time,omitempty"`
	Restricted  []string `json:"restricted,omitempty"`
	ExternalRef string   `json:"external_ref,omitempty"`
}

// CreateMarket opens a new market from an outcome spec.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.Outcomes == "" {
		writeError(w, http.StatusBadRequest, "title and outcomes are required")
		return
	}

	m, err := h.markets.Create(r.Context(), service.CreateMarketInput{
		Title:        req.Title,
		Description:  req.Description,
		OutcomesSpec: req.Outcomes,
		LockTime:     req.LockTime,
		Restricted:   req.Restricted,
		ExternalRef:  req.ExternalRef,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{"market": m}
	if m.LocksAt != nil {
		resp["locks_at_display"] = odds.FormatLockTime(*m.LocksAt)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListMarkets returns active markets.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"count":   len(markets),
	})
}

// GetMarket returns one market by ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}
	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// LockMarket freezes wager acceptance on a market. Locking an already
// locked market reports applied=false.
// POST /api/markets/{id}/lock
func (h *MarketHandler) LockMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}
	applied, err := h.markets.Lock(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"applied":   applied,
	})
}

type updateOddsRequest struct {
	Outcomes string `json:"outcomes"`
}

// UpdateOdds replaces a market's odds. Existing wagers keep their frozen
// payouts.
// PUT /api/markets/{id}/odds
func (h *MarketHandler) UpdateOdds(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}
	var req updateOddsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Outcomes == "" {
		writeError(w, http.StatusBadRequest, "outcomes is required")
		return
	}

	m, err := h.markets.UpdateOdds(r.Context(), id, req.Outcomes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type resolveRequest struct {
	WinningIndex int    `json:"winning_index"`
	DisplayLabel string `json:"display_label"`
}

// ResolveMarket settles a locked market.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settlement, err := h.resolver.Resolve(r.Context(), id, req.WinningIndex, req.DisplayLabel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":     id,
		"winning_index": settlement.WinningIndex,
		"display_label": settlement.DisplayLabel,
		"winners":       settlement.Winners,
		"losers":        settlement.Losers,
	})
}

type annulRequest struct {
	Reason string `json:"reason"`
}

// AnnulMarket cancels a market and refunds every stake.
// POST /api/markets/{id}/annul
func (h *MarketHandler) AnnulMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}
	var req annulRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	annulment, err := h.resolver.Annul(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"reason":    annulment.Reason,
		"refunded":  annulment.Refunded,
	})
}

// marketID parses the {id} path parameter, writing a 400 on failure.
func (h *MarketHandler) marketID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return 0, false
	}
	return id, true
}
