package service_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

func lockMarket(t *testing.T, e *engine, id int64) {
	t.Helper()
	if _, err := e.market.Lock(context.Background(), id); err != nil {
		t.Fatalf("Lock: %v", err)
	}
}

func TestResolvePaysWinnersAndReceiptsEveryone(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	e.placeConfirmed(t, "alice", m.ID, 1, 100) // wins, payout 200
	e.placeConfirmed(t, "bob", m.ID, 2, 300)   // loses
	lockMarket(t, e, m.ID)

	settlement, err := e.resolver.Resolve(ctx, m.ID, 1, "yes it did")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(settlement.Winners) != 1 || settlement.Winners[0].ParticipantID != "alice" {
		t.Fatalf("Winners = %+v, want [alice]", settlement.Winners)
	}
	if settlement.Winners[0].AmountWon != 100 {
		t.Errorf("alice AmountWon = %d, want 100", settlement.Winners[0].AmountWon)
	}
	if len(settlement.Losers) != 1 || settlement.Losers[0].ParticipantID != "bob" {
		t.Fatalf("Losers = %+v, want [bob]", settlement.Losers)
	}

	// alice: 1000 - 100 stake + 200 payout; bob: 1000 - 300 stake.
	wantBalances := map[string]int64{"alice": 1100, "bob": 700}
	for id, want := range wantBalances {
		balance, err := e.ledger.Balance(ctx, id)
		if err != nil {
			t.Fatalf("Balance(%s): %v", id, err)
		}
		if balance != want {
			t.Errorf("Balance(%s) = %d, want %d", id, balance, want)
		}
	}

	// Both get a receipt, the market is gone, and the wagers with it.
	for id, result := range map[string]domain.WagerResult{"alice": domain.WagerResultWin, "bob": domain.WagerResultLoss} {
		history, err := e.ledger.History(ctx, id, domain.ListOpts{})
		if err != nil {
			t.Fatalf("History(%s): %v", id, err)
		}
		if len(history) != 1 {
			t.Fatalf("len(History(%s)) = %d, want 1", id, len(history))
		}
		if history[0].Result != result {
			t.Errorf("History(%s).Result = %s, want %s", id, history[0].Result, result)
		}
		if history[0].MarketTitle != m.Title {
			t.Errorf("History(%s).MarketTitle = %q, want %q", id, history[0].MarketTitle, m.Title)
		}
	}
	if _, err := e.markets.Get(ctx, m.ID); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Get market error = %v, want ErrMarketNotFound", err)
	}

	types := e.presenter.eventTypes()
	if !slices.Contains(types, domain.MarketEventResolved) {
		t.Errorf("event types = %v, want market_resolved present", types)
	}
}

func TestResolveRequiresLockedMarket(t *testing.T) {
	e := newEngine(t, time.Second)
	m := e.openMarket(t)

	_, err := e.resolver.Resolve(context.Background(), m.ID, 1, "label")
	if !errors.Is(err, domain.ErrMarketNotLocked) {
		t.Fatalf("Resolve error = %v, want ErrMarketNotLocked", err)
	}
}

func TestResolveValidatesWinningIndex(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()
	m := e.openMarket(t)
	lockMarket(t, e, m.ID)

	for _, index := range []int{0, 3, -1} {
		if _, err := e.resolver.Resolve(ctx, m.ID, index, "label"); !errors.Is(err, domain.ErrInvalidOutcome) {
			t.Errorf("Resolve(index=%d) error = %v, want ErrInvalidOutcome", index, err)
		}
	}

	if _, err := e.resolver.Resolve(ctx, 404, 1, "label"); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Resolve missing market error = %v, want ErrMarketNotFound", err)
	}
}

func TestAnnulRefundsWithoutReceipts(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	e.placeConfirmed(t, "alice", m.ID, 1, 100)
	e.placeConfirmed(t, "bob", m.ID, 2, 300)

	annulment, err := e.resolver.Annul(ctx, m.ID, "event cancelled")
	if err != nil {
		t.Fatalf("Annul: %v", err)
	}
	if len(annulment.Refunded) != 2 {
		t.Fatalf("len(Refunded) = %d, want 2", len(annulment.Refunded))
	}

	for _, id := range []string{"alice", "bob"} {
		balance, err := e.ledger.Balance(ctx, id)
		if err != nil {
			t.Fatalf("Balance(%s): %v", id, err)
		}
		if balance != 1000 {
			t.Errorf("Balance(%s) = %d, want 1000", id, balance)
		}

		// Annulment is a cancellation, not an outcome: no receipt.
		history, err := e.ledger.History(ctx, id, domain.ListOpts{})
		if err != nil {
			t.Fatalf("History(%s): %v", id, err)
		}
		if len(history) != 0 {
			t.Errorf("len(History(%s)) = %d, want 0", id, len(history))
		}
	}

	if _, err := e.markets.Get(ctx, m.ID); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Get market error = %v, want ErrMarketNotFound", err)
	}
}

func TestAnnulLockedMarket(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	e.placeConfirmed(t, "alice", m.ID, 1, 250)
	lockMarket(t, e, m.ID)

	annulment, err := e.resolver.Annul(ctx, m.ID, "bad odds")
	if err != nil {
		t.Fatalf("Annul: %v", err)
	}
	if len(annulment.Refunded) != 1 || annulment.Refunded[0].Refunded != 250 {
		t.Fatalf("Refunded = %+v, want one line of 250", annulment.Refunded)
	}

	balance, err := e.ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Balance = %d, want 1000", balance)
	}
}

func TestResolveEmptyMarket(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()
	m := e.openMarket(t)
	lockMarket(t, e, m.ID)

	settlement, err := e.resolver.Resolve(ctx, m.ID, 2, "nothing staked")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(settlement.Winners) != 0 || len(settlement.Losers) != 0 {
		t.Errorf("Winners/Losers = %d/%d, want 0/0", len(settlement.Winners), len(settlement.Losers))
	}
	if _, err := e.markets.Get(ctx, m.ID); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Get market error = %v, want ErrMarketNotFound", err)
	}
}
