package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/odds"
	"github.com/lunabets/fairydust/internal/scheduler"
	"github.com/lunabets/fairydust/internal/store/memory"
)

type recordingPresenter struct {
	mu     sync.Mutex
	events []domain.MarketEvent
	fail   bool
}

func (p *recordingPresenter) PresentConfirmation(context.Context, domain.StagedWager) error {
	return nil
}

func (p *recordingPresenter) PublishMarketEvent(_ context.Context, event domain.MarketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("presenter down")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPresenter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newMarket(t *testing.T, markets *memory.MarketStore, locksAt *time.Time) domain.Market {
	t.Helper()
	outcomes, err := odds.Parse("yes|0.5, no|0.5")
	if err != nil {
		t.Fatalf("parse outcomes: %v", err)
	}
	m, err := markets.Create(context.Background(), domain.Market{
		Title:    "scheduled market",
		Outcomes: outcomes,
		Status:   domain.MarketStatusOpen,
		LocksAt:  locksAt,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

func timePtr(t time.Time) *time.Time { return &t }

func TestTickLocksDueMarkets(t *testing.T) {
	st := memory.New()
	markets := memory.NewMarketStore(st)
	presenter := &recordingPresenter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scheduler.NewLockScheduler(markets, nil, presenter, time.Minute, logger)

	ctx := context.Background()
	past := newMarket(t, markets, timePtr(time.Now().UTC().Add(-time.Minute)))
	future := newMarket(t, markets, timePtr(time.Now().UTC().Add(time.Hour)))
	open := newMarket(t, markets, nil)

	if n := s.Tick(ctx); n != 1 {
		t.Fatalf("Tick locked %d markets, want 1", n)
	}

	got, err := markets.Get(ctx, past.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.MarketStatusLocked {
		t.Errorf("past market status = %s, want locked", got.Status)
	}

	for _, id := range []int64{future.ID, open.ID} {
		got, err := markets.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
		if got.Status != domain.MarketStatusOpen {
			t.Errorf("market %d status = %s, want open", id, got.Status)
		}
	}

	if presenter.count() != 1 {
		t.Errorf("published events = %d, want 1", presenter.count())
	}
}

func TestTickIsIdempotent(t *testing.T) {
	st := memory.New()
	markets := memory.NewMarketStore(st)
	presenter := &recordingPresenter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scheduler.NewLockScheduler(markets, nil, presenter, time.Minute, logger)

	ctx := context.Background()
	newMarket(t, markets, timePtr(time.Now().UTC().Add(-time.Minute)))

	if n := s.Tick(ctx); n != 1 {
		t.Fatalf("first Tick locked %d, want 1", n)
	}
	if n := s.Tick(ctx); n != 0 {
		t.Fatalf("second Tick locked %d, want 0", n)
	}
	if presenter.count() != 1 {
		t.Errorf("published events = %d, want 1", presenter.count())
	}
}

func TestTickContinuesPastNotificationFailure(t *testing.T) {
	st := memory.New()
	markets := memory.NewMarketStore(st)
	presenter := &recordingPresenter{fail: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scheduler.NewLockScheduler(markets, nil, presenter, time.Minute, logger)

	ctx := context.Background()
	first := newMarket(t, markets, timePtr(time.Now().UTC().Add(-2*time.Minute)))
	second := newMarket(t, markets, timePtr(time.Now().UTC().Add(-time.Minute)))

	if n := s.Tick(ctx); n != 2 {
		t.Fatalf("Tick locked %d markets, want 2", n)
	}
	for _, id := range []int64{first.ID, second.ID} {
		got, err := markets.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
		if got.Status != domain.MarketStatusLocked {
			t.Errorf("market %d status = %s, want locked", id, got.Status)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := memory.New()
	markets := memory.NewMarketStore(st)
	presenter := &recordingPresenter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scheduler.NewLockScheduler(markets, nil, presenter, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
