package domain

import (
	"context"
	"time"
)

// MarketCache caches market snapshots in front of the persistent store.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id int64) (Market, error)
	Invalidate(ctx context.Context, id int64) error
}

// LockManager provides short-lived mutual exclusion keyed by string. Wager
// placement holds a per-participant lock for the duration of the
// confirmation window so a participant's placements are serialized against
// their balance.
type LockManager interface {
	// Acquire obtains the lock and returns an unlock function, or ErrLockHeld
	// if another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter bounds request rates per key over a sliding window.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted and counts it
	// when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus carries confirm/cancel signals from external presentation
// processes into the engine.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Presenter is the engine's view of the presentation layer. The engine does
// not know the rendering format; implementations forward to websocket
// clients, chat bots, or test doubles.
type Presenter interface {
	// PresentConfirmation shows a staged wager to the participant and is
	// expected to eventually produce a confirm or cancel signal.
	PresentConfirmation(ctx context.Context, staged StagedWager) error
	// PublishMarketEvent announces a market lifecycle change.
	PublishMarketEvent(ctx context.Context, event MarketEvent) error
}

// SettlementArchiver writes a settlement report for a resolved or annulled
// market to cold storage. Failures are non-fatal to settlement.
type SettlementArchiver interface {
	ArchiveSettlement(ctx context.Context, report SettlementReport) error
}

// SettlementLine is one participant's outcome in a settlement report.
type SettlementLine struct {
	ParticipantID string      `json:"participant_id"`
	OutcomeName   string      `json:"outcome_name"`
	Amount        int64       `json:"amount"`
	Result        WagerResult `json:"result,omitempty"`
	AmountWon     int64       `json:"amount_won,omitempty"`
	Refunded      int64       `json:"refunded,omitempty"`
}

// SettlementReport summarizes the resolution or annulment of one market.
type SettlementReport struct {
	MarketID     int64            `json:"market_id"`
	MarketTitle  string           `json:"market_title"`
	Kind         string           `json:"kind"` // "resolved" or "annulled"
	WinningIndex int              `json:"winning_index,omitempty"`
	DisplayLabel string           `json:"display_label,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Lines        []SettlementLine `json:"lines"`
	SettledAt    time.Time        `json:"settled_at"`
}
