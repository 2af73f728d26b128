// Package scheduler runs the periodic market auto-lock loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// LockScheduler transitions open markets to locked once their deadline has
// passed. It runs on a fixed interval, independent of request handling, and
// each tick is idempotent: a market already locked by an operator or an
// overlapping tick is skipped via the compare-and-set transition.
type LockScheduler struct {
	markets   domain.MarketStore
	cache     domain.MarketCache
	presenter domain.Presenter
	interval  time.Duration
	logger    *slog.Logger
}

// NewLockScheduler creates a LockScheduler. The cache may be nil when no
// cache layer is configured.
func NewLockScheduler(
	markets domain.MarketStore,
	cache domain.MarketCache,
	presenter domain.Presenter,
	interval time.Duration,
	logger *slog.Logger,
) *LockScheduler {
	return &LockScheduler{
		markets:   markets,
		cache:     cache,
		presenter: presenter,
		interval:  interval,
		logger:    logger,
	}
}

// Run ticks until the context is cancelled. The first scan happens after one
// full interval.
func (s *LockScheduler) Run(ctx context.Context) error {
	s.logger.Info("lock scheduler starting",
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lock scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if n := s.Tick(ctx); n > 0 {
				s.logger.Info("lock scheduler pass complete",
					slog.Int("locked", n),
				)
			}
		}
	}
}

// Tick scans for markets past their deadline and locks each one, returning
// how many transitions this pass applied. A failure on one market never
// stops the scan; the remaining markets are still processed.
func (s *LockScheduler) Tick(ctx context.Context) int {
	due, err := s.markets.ListDue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "lock scheduler scan failed",
			slog.String("error", err.Error()),
		)
		return 0
	}

	var locked int
	for _, m := range due {
		applied, err := s.markets.TransitionStatus(ctx, m.ID, domain.MarketStatusOpen, domain.MarketStatusLocked)
		if err != nil {
			s.logger.ErrorContext(ctx, "lock transition failed",
				slog.Int64("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !applied {
			// Already locked by an operator or a concurrent tick.
			continue
		}
		locked++

		s.logger.InfoContext(ctx, "market auto-locked",
			slog.Int64("market_id", m.ID),
			slog.String("title", m.Title),
		)

		s.invalidate(ctx, m.ID)
		s.notify(ctx, m)
	}
	return locked
}

func (s *LockScheduler) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// notify announces the lock to the presentation layer. A notification
// failure must not starve the remaining markets in the pass.
func (s *LockScheduler) notify(ctx context.Context, m domain.Market) {
	locked := m
	locked.Status = domain.MarketStatusLocked
	event := domain.MarketEvent{
		Type:     domain.MarketEventLocked,
		MarketID: m.ID,
		Market:   &locked,
		At:       time.Now().UTC(),
	}
	if err := s.presenter.PublishMarketEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "lock notification failed",
			slog.Int64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
