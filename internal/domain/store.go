package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// ParticipantStore persists participant balances and history. All balance
// mutations go through atomic increment operations; a delta that would drive
// a balance negative fails with ErrInsufficientFunds and leaves the balance
// untouched.
type ParticipantStore interface {
	// Ensure returns the participant, creating it with the given starting
	// balance if it does not exist yet.
	Ensure(ctx context.Context, id string, startingBalance int64) (Participant, error)
	Get(ctx context.Context, id string) (Participant, error)
	// IncrementBalance atomically adjusts the balance by delta and returns
	// the new balance.
	IncrementBalance(ctx context.Context, id string, delta int64) (int64, error)
	// ClaimDaily credits the reward and stamps the claim time in one atomic
	// operation.
	ClaimDaily(ctx context.Context, id string, reward int64, claimedAt time.Time) (int64, error)
	TopBalances(ctx context.Context, limit int) ([]Participant, error)
	AppendHistory(ctx context.Context, id string, receipt Receipt) error
	ListHistory(ctx context.Context, id string, opts ListOpts) ([]Receipt, error)
}

// WagerStore persists open wagers. The set of wagers on a market doubles as
// the market's participant set for resolution fan-out; inserting a wager is
// the add-to-set operation.
type WagerStore interface {
	// Commit atomically debits the stake from the participant's balance and
	// records the wager, after re-checking that the market is still open.
	// It fails with ErrInsufficientFunds, ErrDuplicateWager, or
	// ErrMarketLocked without applying either effect.
	Commit(ctx context.Context, w Wager) (newBalance int64, err error)
	Get(ctx context.Context, participantID string, marketID int64) (Wager, error)
	ListByMarket(ctx context.Context, marketID int64) ([]Wager, error)
	ListByParticipant(ctx context.Context, participantID string) ([]Wager, error)
	// Refund credits the exact staked amount back and removes the wager as
	// one atomic unit. Used by annulment.
	Refund(ctx context.Context, participantID string, marketID int64) (newBalance int64, err error)
	// Settle credits the given amount (zero for losses), appends the receipt,
	// and removes the wager as one atomic unit. Used by resolution.
	Settle(ctx context.Context, participantID string, marketID int64, credit int64, receipt Receipt) error
}

// MarketStore persists active markets. Identifiers increase monotonically
// and are never reused after deletion.
type MarketStore interface {
	// Create assigns the next identifier and stores the market.
	Create(ctx context.Context, m Market) (Market, error)
	Get(ctx context.Context, id int64) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	// ListDue returns open markets whose lock deadline is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]Market, error)
	// UpdateOutcomes replaces the odds mapping. Existing wagers keep their
	// own frozen snapshots.
	UpdateOutcomes(ctx context.Context, id int64, outcomes []Outcome) error
	// TransitionStatus performs a compare-and-set on the status field and
	// reports whether the transition was applied. A false return with a nil
	// error means the market was already past the from state.
	TransitionStatus(ctx context.Context, id int64, from, to MarketStatus) (bool, error)
	Delete(ctx context.Context, id int64) error
}
