package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/odds"
)

// CreateMarketInput carries the operator's parameters for a new market.
// OutcomesSpec is the textual "name|prob, name|prob, ..." form; LockTime is an
// optional "MM/DD/YYYY HH:MM" deadline.
type CreateMarketInput struct {
	Title        string
	Description  string
	OutcomesSpec string
	LockTime     string
	Restricted   []string
	ExternalRef  string
}

// MarketService handles market creation, lookup, odds updates, and manual
// locking. Reads go through the cache when one is configured; every
// lifecycle mutation invalidates the cached snapshot.
type MarketService struct {
	markets   domain.MarketStore
	cache     domain.MarketCache
	presenter domain.Presenter
	logger    *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
// The cache may be nil when no cache layer is configured.
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	presenter domain.Presenter,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:   markets,
		cache:     cache,
		presenter: presenter,
		logger:    logger,
	}
}

// Create parses the outcome spec and optional lock deadline, computes odds,
// and stores a new open market. The restricted set is fixed at creation.
func (s *MarketService) Create(ctx context.Context, in CreateMarketInput) (domain.Market, error) {
	outcomes, err := odds.Parse(in.OutcomesSpec)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: parse outcomes: %w", err)
	}

	var locksAt *time.Time
	if in.LockTime != "" {
		t, err := odds.ParseLockTime(in.LockTime)
		if err != nil {
			return domain.Market{}, fmt.Errorf("market_service: parse lock time: %w", err)
		}
		locksAt = &t
	}

	m, err := s.markets.Create(ctx, domain.Market{
		Title:       in.Title,
		Description: in.Description,
		Outcomes:    outcomes,
		Status:      domain.MarketStatusOpen,
		LocksAt:     locksAt,
		Restricted:  in.Restricted,
		ExternalRef: in.ExternalRef,
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.Int64("market_id", m.ID),
		slog.String("title", m.Title),
		slog.Int("outcomes", len(m.Outcomes)),
	)

	s.publishEvent(ctx, domain.MarketEventCreated, m)
	return m, nil
}

// Get retrieves a market by ID, checking the cache first and falling back
// to the persistent store on a miss.
func (s *MarketService) Get(ctx context.Context, id int64) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.Int64("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return m, nil
}

// List returns active markets ordered by ID.
func (s *MarketService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	out, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return out, nil
}

// UpdateOdds replaces the market's odds from a new outcome spec. Wagers
// already placed keep the payout frozen at their placement time.
func (s *MarketService) UpdateOdds(ctx context.Context, id int64, outcomesSpec string) (domain.Market, error) {
	outcomes, err := odds.Parse(outcomesSpec)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: parse outcomes: %w", err)
	}

	if err := s.markets.UpdateOutcomes(ctx, id, outcomes); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: update outcomes %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "market_service: odds updated",
		slog.Int64("market_id", id),
	)

	s.publishEvent(ctx, domain.MarketEventOddsUpdated, m)
	return m, nil
}

// Lock transitions an open market to locked and reports whether this call
// performed the transition. Locking an already locked market is a no-op.
func (s *MarketService) Lock(ctx context.Context, id int64) (bool, error) {
	applied, err := s.markets.TransitionStatus(ctx, id, domain.MarketStatusOpen, domain.MarketStatusLocked)
	if err != nil {
		return false, fmt.Errorf("market_service: lock %d: %w", id, err)
	}
	if !applied {
		return false, nil
	}
	s.invalidate(ctx, id)

	s.logger.InfoContext(ctx, "market_service: market locked",
		slog.Int64("market_id", id),
	)

	if m, err := s.markets.Get(ctx, id); err == nil {
		s.publishEvent(ctx, domain.MarketEventLocked, m)
	}
	return true, nil
}

func (s *MarketService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
		// Non-fatal: the cache entry expires on its own.
	}
}

func (s *MarketService) publishEvent(ctx context.Context, typ domain.MarketEventType, m domain.Market) {
	event := domain.MarketEvent{
		Type:     typ,
		MarketID: m.ID,
		Market:   &m,
		At:       time.Now().UTC(),
	}
	if err := s.presenter.PublishMarketEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("event", string(typ)),
			slog.Int64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
