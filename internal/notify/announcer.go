package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunabets/fairydust/internal/domain"
)

// Announcer adapts the Notifier to the presenter interface so market
// lifecycle events reach operator channels. Wager confirmations are a
// participant-facing concern and are ignored here; they flow through the
// websocket hub instead.
type Announcer struct {
	notifier *Notifier
}

// NewAnnouncer creates an Announcer over the given Notifier.
func NewAnnouncer(notifier *Notifier) *Announcer {
	return &Announcer{notifier: notifier}
}

// PresentConfirmation is a no-op: operator channels do not carry per-wager
// confirmation prompts.
func (a *Announcer) PresentConfirmation(context.Context, domain.StagedWager) error {
	return nil
}

// PublishMarketEvent formats the event and dispatches it to all senders,
// subject to the notifier's event-type filter.
func (a *Announcer) PublishMarketEvent(ctx context.Context, event domain.MarketEvent) error {
	title, message := formatEvent(event)
	return a.notifier.Notify(ctx, string(event.Type), title, message)
}

func formatEvent(event domain.MarketEvent) (title, message string) {
	name := fmt.Sprintf("market %d", event.MarketID)
	if event.Market != nil && event.Market.Title != "" {
		name = fmt.Sprintf("market %d (%s)", event.MarketID, event.Market.Title)
	}

	switch event.Type {
	case domain.MarketEventCreated:
		return "Market opened", fmt.Sprintf("%s is open for wagers\n%s", name, outcomeSummary(event.Market))
	case domain.MarketEventOddsUpdated:
		return "Odds updated", fmt.Sprintf("%s\n%s", name, outcomeSummary(event.Market))
	case domain.MarketEventLocked:
		return "Market locked", fmt.Sprintf("%s no longer accepts wagers", name)
	case domain.MarketEventResolved:
		return "Market resolved", fmt.Sprintf("%s settled: %s", name, event.Detail)
	case domain.MarketEventAnnulled:
		return "Market annulled", fmt.Sprintf("%s annulled, all stakes refunded: %s", name, event.Detail)
	default:
		return string(event.Type), name
	}
}

func outcomeSummary(m *domain.Market) string {
	if m == nil {
		return ""
	}
	lines := make([]string, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		lines = append(lines, fmt.Sprintf("%s %s", o.Name, o.Moneyline))
	}
	return strings.Join(lines, " | ")
}

// Compile-time interface check.
var _ domain.Presenter = (*Announcer)(nil)
