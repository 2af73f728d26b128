package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// MarketStore implements domain.MarketStore over a shared Store.
type MarketStore struct {
	s *Store
}

// NewMarketStore creates a MarketStore backed by the given Store.
func NewMarketStore(s *Store) *MarketStore {
	return &MarketStore{s: s}
}

// Create assigns the next monotonically increasing identifier and stores the
// market. Identifiers are never reused, even after deletion.
func (ms *MarketStore) Create(_ context.Context, m domain.Market) (domain.Market, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m.ID = ms.s.nextMarketID
	ms.s.nextMarketID++
	t := now()
	m.CreatedAt = t
	m.UpdatedAt = t
	ms.s.markets[m.ID] = m
	return m, nil
}

// Get retrieves a market by ID.
func (ms *MarketStore) Get(_ context.Context, id int64) (domain.Market, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m, nil
}

// List returns active markets ordered by ID.
func (ms *MarketStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	out := make([]domain.Market, 0, len(ms.s.markets))
	for _, m := range ms.s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

// ListDue returns open markets whose lock deadline has passed.
func (ms *MarketStore) ListDue(_ context.Context, nowAt time.Time) ([]domain.Market, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	var out []domain.Market
	for _, m := range ms.s.markets {
		if m.Status == domain.MarketStatusOpen && m.LocksAt != nil && !m.LocksAt.After(nowAt) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateOutcomes replaces the odds mapping. Wager snapshots are unaffected.
func (ms *MarketStore) UpdateOutcomes(_ context.Context, id int64, outcomes []domain.Outcome) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.markets[id]
	if !ok {
		return domain.ErrMarketNotFound
	}
	m.Outcomes = outcomes
	m.UpdatedAt = now()
	ms.s.markets[id] = m
	return nil
}

// TransitionStatus performs a compare-and-set on the status field.
func (ms *MarketStore) TransitionStatus(_ context.Context, id int64, from, to domain.MarketStatus) (bool, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.markets[id]
	if !ok {
		return false, domain.ErrMarketNotFound
	}
	if m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = now()
	ms.s.markets[id] = m
	return true, nil
}

// Delete removes a market and any wagers still pointing at it. Settlement
// normally clears the wagers first; the sweep covers records it skipped,
// mirroring the schema's ON DELETE CASCADE.
func (ms *MarketStore) Delete(_ context.Context, id int64) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	delete(ms.s.markets, id)
	for key := range ms.s.wagers {
		if key.marketID == id {
			delete(ms.s.wagers, key)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
