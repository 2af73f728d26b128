package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/service"
)

func TestEnsureCreatesWithStartingBalance(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()

	p, err := e.ledger.Ensure(ctx, "alice")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.Balance != 1000 {
		t.Errorf("Balance = %d, want 1000", p.Balance)
	}

	// A second call must not reset the balance.
	if _, err := e.participants.IncrementBalance(ctx, "alice", -400); err != nil {
		t.Fatalf("IncrementBalance: %v", err)
	}
	p, err = e.ledger.Ensure(ctx, "alice")
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if p.Balance != 600 {
		t.Errorf("Balance after re-ensure = %d, want 600", p.Balance)
	}
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		amount  int64
		setup   func(ctx context.Context, e *engine)
		wantErr error
	}{
		{name: "ok", from: "alice", to: "bob", amount: 250},
		{name: "zero amount", from: "alice", to: "bob", amount: 0, wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", from: "alice", to: "bob", amount: -5, wantErr: domain.ErrInvalidAmount},
		{name: "self transfer", from: "alice", to: "alice", amount: 10, wantErr: domain.ErrSelfTransfer},
		{
			name: "insufficient funds", from: "alice", to: "bob", amount: 5000,
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, time.Second)
			ctx := context.Background()
			if tt.setup != nil {
				tt.setup(ctx, e)
			}

			got, err := e.ledger.Transfer(ctx, tt.from, tt.to, tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Transfer error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			if got.FromBalance != 1000-tt.amount {
				t.Errorf("FromBalance = %d, want %d", got.FromBalance, 1000-tt.amount)
			}
			if got.ToBalance != 1000+tt.amount {
				t.Errorf("ToBalance = %d, want %d", got.ToBalance, 1000+tt.amount)
			}
		})
	}
}

func TestTransferFailureLeavesBalancesIntact(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()

	if _, err := e.ledger.Transfer(ctx, "alice", "bob", 9999); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Transfer error = %v, want ErrInsufficientFunds", err)
	}

	for _, id := range []string{"alice", "bob"} {
		balance, err := e.ledger.Balance(ctx, id)
		if err != nil {
			t.Fatalf("Balance(%s): %v", id, err)
		}
		if balance != 1000 {
			t.Errorf("Balance(%s) = %d, want 1000", id, balance)
		}
	}
}

func TestClaimDaily(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()

	got, err := e.ledger.ClaimDaily(ctx, "alice")
	if err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if got.Reward < 1 || got.Reward > 100 {
		t.Errorf("Reward = %d, want within [1, 100]", got.Reward)
	}
	if got.NewBalance != 1000+got.Reward {
		t.Errorf("NewBalance = %d, want %d", got.NewBalance, 1000+got.Reward)
	}

	// A second claim inside the cooldown window must fail with the wait.
	_, err = e.ledger.ClaimDaily(ctx, "alice")
	if !errors.Is(err, domain.ErrDailyAlreadyClaimed) {
		t.Fatalf("second ClaimDaily error = %v, want ErrDailyAlreadyClaimed", err)
	}
	var cooldown *service.DailyCooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("second ClaimDaily error = %T, want *DailyCooldownError", err)
	}
	if cooldown.Remaining <= 0 || cooldown.Remaining > 24*time.Hour {
		t.Errorf("Remaining = %v, want within (0, 24h]", cooldown.Remaining)
	}
}

func TestClaimDailyAfterCooldown(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()

	if _, err := e.ledger.Ensure(ctx, "alice"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	// Backdate the last claim past the cooldown window.
	stale := time.Now().UTC().Add(-25 * time.Hour)
	if _, err := e.participants.ClaimDaily(ctx, "alice", 0, stale); err != nil {
		t.Fatalf("backdate claim: %v", err)
	}

	if _, err := e.ledger.ClaimDaily(ctx, "alice"); err != nil {
		t.Fatalf("ClaimDaily after cooldown: %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	e := newEngine(t, time.Second)
	ctx := context.Background()

	balances := map[string]int64{"alice": 500, "bob": -200, "carol": 300}
	for id, delta := range balances {
		if _, err := e.ledger.Ensure(ctx, id); err != nil {
			t.Fatalf("Ensure(%s): %v", id, err)
		}
		if _, err := e.participants.IncrementBalance(ctx, id, delta); err != nil {
			t.Fatalf("IncrementBalance(%s): %v", id, err)
		}
	}

	top, err := e.ledger.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].ID != "alice" || top[0].Balance != 1500 {
		t.Errorf("top[0] = %s/%d, want alice/1500", top[0].ID, top[0].Balance)
	}
	if top[1].ID != "carol" || top[1].Balance != 1300 {
		t.Errorf("top[1] = %s/%d, want carol/1300", top[1].ID, top[1].Balance)
	}
}
