package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// ParticipantStore implements domain.ParticipantStore over a shared Store.
type ParticipantStore struct {
	s *Store
}

// NewParticipantStore creates a ParticipantStore backed by the given Store.
func NewParticipantStore(s *Store) *ParticipantStore {
	return &ParticipantStore{s: s}
}

// Ensure returns the participant, creating it lazily with the starting
// balance on first reference.
func (ps *ParticipantStore) Ensure(_ context.Context, id string, startingBalance int64) (domain.Participant, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	if p, ok := ps.s.participants[id]; ok {
		return *p, nil
	}
	p := &domain.Participant{
		ID:        id,
		Balance:   startingBalance,
		CreatedAt: now(),
	}
	ps.s.participants[id] = p
	return *p, nil
}

// Get retrieves a participant by ID.
func (ps *ParticipantStore) Get(_ context.Context, id string) (domain.Participant, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	p, ok := ps.s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return *p, nil
}

// IncrementBalance atomically adjusts the balance by delta.
func (ps *ParticipantStore) IncrementBalance(_ context.Context, id string, delta int64) (int64, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	return ps.s.incrementLocked(id, delta)
}

// ClaimDaily credits the reward and stamps the claim time atomically.
func (ps *ParticipantStore) ClaimDaily(_ context.Context, id string, reward int64, claimedAt time.Time) (int64, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	p, ok := ps.s.participants[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.Balance += reward
	t := claimedAt
	p.LastDaily = &t
	return p.Balance, nil
}

// TopBalances returns participants ordered by balance, richest first.
func (ps *ParticipantStore) TopBalances(_ context.Context, limit int) ([]domain.Participant, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	out := make([]domain.Participant, 0, len(ps.s.participants))
	for _, p := range ps.s.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendHistory appends an immutable receipt to the participant's history.
func (ps *ParticipantStore) AppendHistory(_ context.Context, id string, receipt domain.Receipt) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	ps.s.appendHistoryLocked(id, receipt)
	return nil
}

// ListHistory returns receipts in append order.
func (ps *ParticipantStore) ListHistory(_ context.Context, id string, opts domain.ListOpts) ([]domain.Receipt, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	return paginate(ps.s.history[id], opts), nil
}

// Compile-time interface check.
var _ domain.ParticipantStore = (*ParticipantStore)(nil)
