package domain

import "time"

// Participant is a wallet holder in the internal economy. Participants are
// created lazily on first reference with a fixed starting balance; only the
// ledger mutates balances.
type Participant struct {
	ID        string     `json:"id"`
	Balance   int64      `json:"balance"`
	LastDaily *time.Time `json:"last_daily,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// WagerResult is the settled outcome of a wager.
type WagerResult string

const (
	WagerResultWin  WagerResult = "win"
	WagerResultLoss WagerResult = "loss"
)

// Wager is one participant's staked claim on a single outcome of a single
// market. The outcome name and payout are frozen at placement time and are
// never recomputed, even if the market's odds are later updated.
type Wager struct {
	ParticipantID string    `json:"participant_id"`
	MarketID      int64     `json:"market_id"`
	OutcomeIndex  int       `json:"outcome_index"` // 1-based into Market.Outcomes
	OutcomeName   string    `json:"outcome_name"`
	Amount        int64     `json:"amount"`
	Payout        int64     `json:"payout"` // stake x decimal odds at placement
	PlacedAt      time.Time `json:"placed_at"`
}

// Receipt is an immutable history record appended to a participant when a
// market is resolved. Annulments do not produce receipts.
type Receipt struct {
	ID          int64       `json:"id,omitempty"`
	MarketTitle string      `json:"market_title"`
	OutcomeName string      `json:"outcome_name"`
	Amount      int64       `json:"amount"`
	Result      WagerResult `json:"result"`
	AmountWon   int64       `json:"amount_won,omitempty"` // payout - stake, wins only
	ResolvedAt  time.Time   `json:"resolved_at"`
}

// StagedWager is a wager awaiting its confirm or cancel signal. It carries
// the token the presentation layer must echo back to settle the request.
type StagedWager struct {
	Token     string    `json:"token"`
	Wager     Wager     `json:"wager"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignalAction is the external decision on a staged wager.
type SignalAction string

const (
	SignalConfirm SignalAction = "confirm"
	SignalCancel  SignalAction = "cancel"
)
