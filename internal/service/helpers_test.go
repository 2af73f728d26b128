package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lunabets/fairydust/internal/confirm"
	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/odds"
	"github.com/lunabets/fairydust/internal/service"
	"github.com/lunabets/fairydust/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// capturePresenter records presented confirmations and published events, and
// exposes staged wagers on a channel so tests can react to them.
type capturePresenter struct {
	mu     sync.Mutex
	staged chan domain.StagedWager
	events []domain.MarketEvent
}

func newCapturePresenter() *capturePresenter {
	return &capturePresenter{staged: make(chan domain.StagedWager, 8)}
}

func (p *capturePresenter) PresentConfirmation(_ context.Context, staged domain.StagedWager) error {
	p.staged <- staged
	return nil
}

func (p *capturePresenter) PublishMarketEvent(_ context.Context, event domain.MarketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePresenter) eventTypes() []domain.MarketEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MarketEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// engine bundles a full in-memory service stack for tests.
type engine struct {
	store        *memory.Store
	participants *memory.ParticipantStore
	wagers       *memory.WagerStore
	markets      *memory.MarketStore
	registry     *confirm.Registry
	presenter    *capturePresenter

	ledger   *service.LedgerService
	market   *service.MarketService
	wager    *service.WagerService
	resolver *service.ResolverService
}

func newEngine(t *testing.T, confirmTimeout time.Duration) *engine {
	t.Helper()

	st := memory.New()
	e := &engine{
		store:        st,
		participants: memory.NewParticipantStore(st),
		wagers:       memory.NewWagerStore(st),
		markets:      memory.NewMarketStore(st),
		registry:     confirm.NewRegistry(),
		presenter:    newCapturePresenter(),
	}

	logger := testLogger()
	e.ledger = service.NewLedgerService(e.participants, service.LedgerConfig{
		StartingBalance: 1000,
		DailyRewardMin:  1,
		DailyRewardMax:  100,
		DailyCooldown:   24 * time.Hour,
	}, logger)
	e.market = service.NewMarketService(e.markets, nil, e.presenter, logger)
	e.wager = service.NewWagerService(
		e.markets, e.participants, e.wagers,
		memory.NewLockManager(), e.registry, e.presenter,
		1000, confirmTimeout, logger,
	)
	e.resolver = service.NewResolverService(e.markets, e.wagers, nil, e.presenter, nil, logger)
	return e
}

// openMarket stores a market with evenly split odds and returns it.
func (e *engine) openMarket(t *testing.T, restricted ...string) domain.Market {
	t.Helper()

	outcomes, err := odds.Parse("yes|0.5, no|0.5")
	if err != nil {
		t.Fatalf("parse outcomes: %v", err)
	}
	m, err := e.markets.Create(context.Background(), domain.Market{
		Title:      "test market",
		Outcomes:   outcomes,
		Status:     domain.MarketStatusOpen,
		Restricted: restricted,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

// placeConfirmed runs a full place-and-confirm cycle.
func (e *engine) placeConfirmed(t *testing.T, participantID string, marketID int64, outcomeIndex int, amount int64) service.PlacedWager {
	t.Helper()

	type result struct {
		placed service.PlacedWager
		err    error
	}
	done := make(chan result, 1)
	go func() {
		placed, err := e.wager.Place(context.Background(), participantID, marketID, outcomeIndex, amount)
		done <- result{placed, err}
	}()

	select {
	case staged := <-e.presenter.staged:
		if err := e.wager.Signal(context.Background(), staged.Token, domain.SignalConfirm); err != nil {
			t.Fatalf("signal confirm: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no staged wager presented")
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("place: %v", r.err)
		}
		return r.placed
	case <-time.After(2 * time.Second):
		t.Fatal("place did not return")
		return service.PlacedWager{}
	}
}
