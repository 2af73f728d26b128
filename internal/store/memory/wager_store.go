package memory

import (
	"context"

	"github.com/lunabets/fairydust/internal/domain"
)

// WagerStore implements domain.WagerStore over a shared Store.
type WagerStore struct {
	s *Store
}

// NewWagerStore creates a WagerStore backed by the given Store.
func NewWagerStore(s *Store) *WagerStore {
	return &WagerStore{s: s}
}

// Commit debits the stake and records the wager as one atomic unit,
// re-checking market state and balance under the store lock.
func (ws *WagerStore) Commit(_ context.Context, w domain.Wager) (int64, error) {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()

	m, ok := ws.s.markets[w.MarketID]
	if !ok {
		return 0, domain.ErrMarketNotFound
	}
	if m.Status != domain.MarketStatusOpen {
		return 0, domain.ErrMarketLocked
	}
	key := wagerKey{w.ParticipantID, w.MarketID}
	if _, dup := ws.s.wagers[key]; dup {
		return 0, domain.ErrDuplicateWager
	}

	newBalance, err := ws.s.incrementLocked(w.ParticipantID, -w.Amount)
	if err != nil {
		return 0, err
	}
	ws.s.wagers[key] = w
	return newBalance, nil
}

// Get retrieves a participant's open wager on a market.
func (ws *WagerStore) Get(_ context.Context, participantID string, marketID int64) (domain.Wager, error) {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	w, ok := ws.s.wagers[wagerKey{participantID, marketID}]
	if !ok {
		return domain.Wager{}, domain.ErrNotFound
	}
	return w, nil
}

// ListByMarket returns all open wagers on a market in placement order.
func (ws *WagerStore) ListByMarket(_ context.Context, marketID int64) ([]domain.Wager, error) {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	var out []domain.Wager
	for _, w := range ws.s.wagers {
		if w.MarketID == marketID {
			out = append(out, w)
		}
	}
	return sortedWagers(out), nil
}

// ListByParticipant returns a participant's open wagers in placement order.
func (ws *WagerStore) ListByParticipant(_ context.Context, participantID string) ([]domain.Wager, error) {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	var out []domain.Wager
	for _, w := range ws.s.wagers {
		if w.ParticipantID == participantID {
			out = append(out, w)
		}
	}
	return sortedWagers(out), nil
}

// Refund credits the staked amount back and removes the wager atomically.
func (ws *WagerStore) Refund(_ context.Context, participantID string, marketID int64) (int64, error) {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	key := wagerKey{participantID, marketID}
	w, ok := ws.s.wagers[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	newBalance, err := ws.s.incrementLocked(participantID, w.Amount)
	if err != nil {
		return 0, err
	}
	delete(ws.s.wagers, key)
	return newBalance, nil
}

// Settle credits winnings (zero for losses), appends the receipt, and
// removes the wager atomically.
func (ws *WagerStore) Settle(_ context.Context, participantID string, marketID int64, credit int64, receipt domain.Receipt) error {
	ws.s.mu.Lock()
	defer ws.s.mu.Unlock()
	key := wagerKey{participantID, marketID}
	if _, ok := ws.s.wagers[key]; !ok {
		return domain.ErrNotFound
	}
	if credit > 0 {
		if _, err := ws.s.incrementLocked(participantID, credit); err != nil {
			return err
		}
	}
	ws.s.appendHistoryLocked(participantID, receipt)
	delete(ws.s.wagers, key)
	return nil
}

// Compile-time interface check.
var _ domain.WagerStore = (*WagerStore)(nil)
