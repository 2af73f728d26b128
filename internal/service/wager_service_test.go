package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

func TestPlaceConfirmCommits(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	placed := e.placeConfirmed(t, "alice", m.ID, 1, 100)

	if placed.NewBalance != 900 {
		t.Errorf("NewBalance = %d, want 900", placed.NewBalance)
	}
	if placed.Wager.OutcomeName != "yes" {
		t.Errorf("OutcomeName = %s, want yes", placed.Wager.OutcomeName)
	}
	// Even odds: payout is stake times 2.0, frozen at placement.
	if placed.Wager.Payout != 200 {
		t.Errorf("Payout = %d, want 200", placed.Wager.Payout)
	}

	w, err := e.wagers.Get(ctx, "alice", m.ID)
	if err != nil {
		t.Fatalf("Get wager: %v", err)
	}
	if w.Amount != 100 {
		t.Errorf("stored Amount = %d, want 100", w.Amount)
	}
}

func TestPlaceCancelLeavesStateUntouched(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.wager.Place(ctx, "alice", m.ID, 1, 100)
		errCh <- err
	}()

	staged := <-e.presenter.staged
	if err := e.wager.Signal(ctx, staged.Token, domain.SignalCancel); err != nil {
		t.Fatalf("Signal cancel: %v", err)
	}

	if err := <-errCh; !errors.Is(err, domain.ErrWagerCancelled) {
		t.Fatalf("Place error = %v, want ErrWagerCancelled", err)
	}

	balance, err := e.ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Balance = %d, want 1000", balance)
	}
	if _, err := e.wagers.Get(ctx, "alice", m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get wager error = %v, want ErrNotFound", err)
	}
}

func TestPlaceTimesOut(t *testing.T) {
	e := newEngine(t, 50*time.Millisecond)
	ctx := context.Background()
	m := e.openMarket(t)

	_, err := e.wager.Place(ctx, "alice", m.ID, 1, 100)
	if !errors.Is(err, domain.ErrConfirmationTimedOut) {
		t.Fatalf("Place error = %v, want ErrConfirmationTimedOut", err)
	}

	balance, err := e.ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Balance = %d, want 1000", balance)
	}
}

func TestPlaceValidation(t *testing.T) {
	tests := []struct {
		name          string
		participantID string
		marketID      func(m domain.Market) int64
		outcomeIndex  int
		amount        int64
		setup         func(t *testing.T, e *engine, m domain.Market)
		wantErr       error
	}{
		{
			name: "invalid amount", participantID: "alice", outcomeIndex: 1, amount: 0,
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "market not found", participantID: "alice", outcomeIndex: 1, amount: 100,
			marketID: func(domain.Market) int64 { return 404 },
			wantErr:  domain.ErrMarketNotFound,
		},
		{
			name: "conflict of interest", participantID: "insider", outcomeIndex: 1, amount: 100,
			wantErr: domain.ErrConflictOfInterest,
		},
		{
			name: "duplicate wager", participantID: "alice", outcomeIndex: 1, amount: 100,
			setup: func(t *testing.T, e *engine, m domain.Market) {
				e.placeConfirmed(t, "alice", m.ID, 2, 50)
			},
			wantErr: domain.ErrDuplicateWager,
		},
		{
			name: "market locked", participantID: "alice", outcomeIndex: 1, amount: 100,
			setup: func(t *testing.T, e *engine, m domain.Market) {
				if _, err := e.market.Lock(context.Background(), m.ID); err != nil {
					t.Fatalf("Lock: %v", err)
				}
			},
			wantErr: domain.ErrMarketLocked,
		},
		{
			name: "insufficient funds", participantID: "alice", outcomeIndex: 1, amount: 1001,
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "invalid outcome", participantID: "alice", outcomeIndex: 3, amount: 100,
			wantErr: domain.ErrInvalidOutcome,
		},
		{
			name: "zero outcome index", participantID: "alice", outcomeIndex: 0, amount: 100,
			wantErr: domain.ErrInvalidOutcome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, time.Second)
			m := e.openMarket(t, "insider")
			if tt.setup != nil {
				tt.setup(t, e, m)
			}

			marketID := m.ID
			if tt.marketID != nil {
				marketID = tt.marketID(m)
			}

			_, err := e.wager.Place(context.Background(), tt.participantID, marketID, tt.outcomeIndex, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Place error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceRechecksLockAtCommit(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	m := e.openMarket(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.wager.Place(ctx, "alice", m.ID, 1, 100)
		errCh <- err
	}()

	staged := <-e.presenter.staged

	// The market locks while the confirmation is pending; the commit must
	// re-check state and reject.
	if _, err := e.market.Lock(ctx, m.ID); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := e.wager.Signal(ctx, staged.Token, domain.SignalConfirm); err != nil {
		t.Fatalf("Signal confirm: %v", err)
	}

	if err := <-errCh; !errors.Is(err, domain.ErrMarketLocked) {
		t.Fatalf("Place error = %v, want ErrMarketLocked", err)
	}

	balance, err := e.ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Balance = %d, want 1000", balance)
	}
}

func TestPlaceSerializesPerParticipant(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	ctx := context.Background()
	first := e.openMarket(t)
	second := e.openMarket(t)

	// Two concurrent placements by the same participant, 600 each from a
	// balance of 1000. Serialization means the second validates only after
	// the first commits, so exactly one can succeed.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, marketID := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := e.wager.Place(ctx, "alice", id, 1, 600)
			results <- err
		}(marketID)
	}

	// Confirm whatever gets staged. The placement that loses the race
	// fails validation on the reduced balance and never stages at all.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case staged := <-e.presenter.staged:
				_ = e.wager.Signal(ctx, staged.Token, domain.SignalConfirm)
			case <-stop:
				return
			}
		}
	}()

	wg.Wait()
	close(stop)
	close(results)

	var committed, rejected int
	for err := range results {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected Place error: %v", err)
		}
	}
	if committed != 1 || rejected != 1 {
		t.Errorf("committed = %d, rejected = %d, want 1 and 1", committed, rejected)
	}

	balance, err := e.ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 400 {
		t.Errorf("Balance = %d, want 400", balance)
	}
}

func TestSignalUnknownToken(t *testing.T) {
	e := newEngine(t, time.Second)

	err := e.wager.Signal(context.Background(), "no-such-token", domain.SignalConfirm)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Signal error = %v, want ErrNotFound", err)
	}

	if err := e.wager.Signal(context.Background(), "tok", domain.SignalAction("maybe")); err == nil {
		t.Fatal("Signal with bad action succeeded, want error")
	}
}

func TestOpenWagers(t *testing.T) {
	e := newEngine(t, 2*time.Second)
	first := e.openMarket(t)
	second := e.openMarket(t)

	e.placeConfirmed(t, "alice", first.ID, 1, 100)
	e.placeConfirmed(t, "alice", second.ID, 2, 200)

	open, err := e.wager.OpenWagers(context.Background(), "alice")
	if err != nil {
		t.Fatalf("OpenWagers: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("len(open) = %d, want 2", len(open))
	}
}
