// Package memory implements the domain store interfaces with in-process
// maps. It backs the "memory" persistence driver and the service test
// suites; semantics match the PostgreSQL implementation, including the
// atomicity of commit, refund, and settle.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

type wagerKey struct {
	participantID string
	marketID      int64
}

// Store holds all engine state behind a single mutex. Every operation that
// the SQL stores run as one transaction is a single critical section here.
// The per-interface store types below share one Store.
type Store struct {
	mu           sync.Mutex
	participants map[string]*domain.Participant
	history      map[string][]domain.Receipt
	wagers       map[wagerKey]domain.Wager
	markets      map[int64]domain.Market
	nextMarketID int64
	nextReceipt  int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		participants: make(map[string]*domain.Participant),
		history:      make(map[string][]domain.Receipt),
		wagers:       make(map[wagerKey]domain.Wager),
		markets:      make(map[int64]domain.Market),
		nextMarketID: 1,
		nextReceipt:  1,
	}
}

// incrementLocked adjusts a balance, guarding against negatives. Callers
// must hold s.mu.
func (s *Store) incrementLocked(id string, delta int64) (int64, error) {
	p, ok := s.participants[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if p.Balance+delta < 0 {
		return 0, domain.ErrInsufficientFunds
	}
	p.Balance += delta
	return p.Balance, nil
}

// appendHistoryLocked appends a receipt with the next receipt ID. Callers
// must hold s.mu.
func (s *Store) appendHistoryLocked(id string, receipt domain.Receipt) {
	receipt.ID = s.nextReceipt
	s.nextReceipt++
	s.history[id] = append(s.history[id], receipt)
}

func paginate[T any](all []T, opts domain.ListOpts) []T {
	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	out := make([]T, end-start)
	copy(out, all[start:end])
	return out
}

func sortedWagers(out []domain.Wager) []domain.Wager {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

func now() time.Time { return time.Now().UTC() }
