package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	// MarketStatusOpen accepts new wagers.
	MarketStatusOpen MarketStatus = "open"
	// MarketStatusLocked no longer accepts wagers but is not yet settled.
	MarketStatusLocked MarketStatus = "locked"
)

// Outcome is one named outcome of a market together with the odds priced for
// it. Outcomes are priced independently; probabilities across a market are
// not required to sum to 1.
type Outcome struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Moneyline   string  `json:"moneyline"`
	DecimalOdds float64 `json:"decimal_odds"`
}

// Market is a proposition with named outcomes, open for wagering until it is
// locked and then resolved or annulled. Resolved and annulled markets are
// removed from active storage; only participant history survives them.
type Market struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Outcomes    []Outcome    `json:"outcomes"` // insertion order = display order
	Status      MarketStatus `json:"status"`
	LocksAt     *time.Time   `json:"locks_at,omitempty"`
	Restricted  []string     `json:"restricted,omitempty"` // participant IDs barred from wagering
	ExternalRef string       `json:"external_ref,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsRestricted reports whether the given participant is in the market's
// conflict-of-interest exclusion set.
func (m Market) IsRestricted(participantID string) bool {
	for _, id := range m.Restricted {
		if id == participantID {
			return true
		}
	}
	return false
}

// OutcomeAt returns the outcome at the given 1-based index.
func (m Market) OutcomeAt(index int) (Outcome, bool) {
	if index < 1 || index > len(m.Outcomes) {
		return Outcome{}, false
	}
	return m.Outcomes[index-1], true
}

// MarketEventType identifies a market lifecycle event published to the
// presentation layer.
type MarketEventType string

const (
	MarketEventCreated      MarketEventType = "market_created"
	MarketEventOddsUpdated  MarketEventType = "odds_updated"
	MarketEventLocked       MarketEventType = "market_locked"
	MarketEventResolved     MarketEventType = "market_resolved"
	MarketEventAnnulled     MarketEventType = "market_annulled"
	MarketEventWagerPlaced  MarketEventType = "wager_placed"
	MarketEventWagerPending MarketEventType = "wager_pending"
)

// MarketEvent is a lifecycle notification pushed to presentation clients.
type MarketEvent struct {
	Type     MarketEventType `json:"type"`
	MarketID int64           `json:"market_id"`
	Market   *Market         `json:"market,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	At       time.Time       `json:"at"`
}
