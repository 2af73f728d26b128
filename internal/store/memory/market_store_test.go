package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/store/memory"
)

// Market deletion must sweep wagers still pointing at the market, the same
// way the SQL schema cascades, so a record skipped during settlement never
// lingers as an orphan.
func TestDeleteSweepsRemainingWagers(t *testing.T) {
	st := memory.New()
	markets := memory.NewMarketStore(st)
	wagers := memory.NewWagerStore(st)
	participants := memory.NewParticipantStore(st)
	ctx := context.Background()

	if _, err := participants.Ensure(ctx, "alice", 1000); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	m, err := markets.Create(ctx, domain.Market{
		Title:  "sweep test",
		Status: domain.MarketStatusOpen,
		Outcomes: []domain.Outcome{
			{Name: "yes", Probability: 0.5, Moneyline: "-100", DecimalOdds: 2.0},
			{Name: "no", Probability: 0.5, Moneyline: "-100", DecimalOdds: 2.0},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := wagers.Commit(ctx, domain.Wager{
		ParticipantID: "alice",
		MarketID:      m.ID,
		OutcomeIndex:  1,
		OutcomeName:   "yes",
		Amount:        100,
		Payout:        200,
		PlacedAt:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := markets.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := wagers.Get(ctx, "alice", m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after market delete = %v, want ErrNotFound", err)
	}
	open, err := wagers.ListByParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByParticipant: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open wagers after market delete = %d, want 0", len(open))
	}
}
