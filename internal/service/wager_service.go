package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lunabets/fairydust/internal/confirm"
	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/odds"
)

// lockRetryInterval is how often a placement retries the per-participant
// lock while another placement by the same participant is pending.
const lockRetryInterval = 100 * time.Millisecond

// PlacedWager is the result of a confirmed and committed wager.
type PlacedWager struct {
	Wager      domain.Wager
	NewBalance int64
}

// WagerService runs the staged confirmation protocol for wager placement.
// A placement validates against current state, presents the staged wager
// for confirmation, and commits only when the confirm signal arrives within
// the timeout. The per-participant lock serializes placements so two staged
// wagers cannot both spend the same balance.
type WagerService struct {
	markets         domain.MarketStore
	participants    domain.ParticipantStore
	wagers          domain.WagerStore
	locks           domain.LockManager
	registry        *confirm.Registry
	presenter       domain.Presenter
	startingBalance int64
	confirmTimeout  time.Duration
	logger          *slog.Logger
}

// NewWagerService creates a WagerService with all required dependencies.
func NewWagerService(
	markets domain.MarketStore,
	participants domain.ParticipantStore,
	wagers domain.WagerStore,
	locks domain.LockManager,
	registry *confirm.Registry,
	presenter domain.Presenter,
	startingBalance int64,
	confirmTimeout time.Duration,
	logger *slog.Logger,
) *WagerService {
	return &WagerService{
		markets:         markets,
		participants:    participants,
		wagers:          wagers,
		locks:           locks,
		registry:        registry,
		presenter:       presenter,
		startingBalance: startingBalance,
		confirmTimeout:  confirmTimeout,
		logger:          logger,
	}
}

// Place stages a wager, waits for its confirm or cancel signal, and commits
// on confirmation. The call blocks for up to the confirmation timeout. The
// payout is computed from the decimal odds at staging time and frozen; odds
// updates during the wait do not change it. No state is touched unless the
// wager is confirmed and the commit re-validation passes.
func (s *WagerService) Place(ctx context.Context, participantID string, marketID int64, outcomeIndex int, amount int64) (PlacedWager, error) {
	if amount <= 0 {
		return PlacedWager{}, domain.ErrInvalidAmount
	}

	unlock, err := s.acquireParticipantLock(ctx, participantID)
	if err != nil {
		return PlacedWager{}, err
	}
	defer unlock()

	w, err := s.validate(ctx, participantID, marketID, outcomeIndex, amount)
	if err != nil {
		return PlacedWager{}, err
	}

	staged := domain.StagedWager{
		Token:     uuid.NewString(),
		Wager:     w,
		ExpiresAt: time.Now().UTC().Add(s.confirmTimeout),
	}

	signals := s.registry.Register(staged.Token)
	defer s.registry.Remove(staged.Token)

	if err := s.presenter.PresentConfirmation(ctx, staged); err != nil {
		// The signal can still arrive through the API, so keep waiting.
		s.logger.WarnContext(ctx, "wager_service: present confirmation failed",
			slog.String("token", staged.Token),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wager_service: wager staged",
		slog.String("participant_id", participantID),
		slog.Int64("market_id", marketID),
		slog.String("token", staged.Token),
		slog.Int64("amount", amount),
	)

	timer := time.NewTimer(s.confirmTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return PlacedWager{}, ctx.Err()
	case <-timer.C:
		return PlacedWager{}, domain.ErrConfirmationTimedOut
	case action := <-signals:
		if action != domain.SignalConfirm {
			return PlacedWager{}, domain.ErrWagerCancelled
		}
	}

	w.PlacedAt = time.Now().UTC()
	balance, err := s.wagers.Commit(ctx, w)
	if err != nil {
		return PlacedWager{}, fmt.Errorf("wager_service: commit: %w", err)
	}

	s.logger.InfoContext(ctx, "wager_service: wager placed",
		slog.String("participant_id", participantID),
		slog.Int64("market_id", marketID),
		slog.Int64("amount", amount),
		slog.Int64("payout", w.Payout),
	)
	s.publishWagerEvent(ctx, domain.MarketEventWagerPlaced, w)

	return PlacedWager{Wager: w, NewBalance: balance}, nil
}

// Signal delivers an external confirm or cancel decision for a staged
// wager. It fails with domain.ErrNotFound when no placement is waiting on
// the token, which covers expired, settled, and never-issued tokens alike.
func (s *WagerService) Signal(_ context.Context, token string, action domain.SignalAction) error {
	if action != domain.SignalConfirm && action != domain.SignalCancel {
		return fmt.Errorf("wager_service: unknown signal action %q", action)
	}
	if !s.registry.Resolve(token, action) {
		return fmt.Errorf("wager_service: signal %s: %w", token, domain.ErrNotFound)
	}
	return nil
}

// OpenWagers returns the participant's open wagers across all markets.
func (s *WagerService) OpenWagers(ctx context.Context, participantID string) ([]domain.Wager, error) {
	out, err := s.wagers.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("wager_service: open wagers %s: %w", participantID, err)
	}
	return out, nil
}

// validate runs the fast-fail checks against current state and builds the
// wager with its frozen payout. The commit after confirmation re-checks
// market state and balance, so a lock or spend that lands during the wait
// is still rejected.
func (s *WagerService) validate(ctx context.Context, participantID string, marketID int64, outcomeIndex int, amount int64) (domain.Wager, error) {
	p, err := s.participants.Ensure(ctx, participantID, s.startingBalance)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("wager_service: ensure participant: %w", err)
	}

	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			return domain.Wager{}, domain.ErrMarketNotFound
		}
		return domain.Wager{}, fmt.Errorf("wager_service: get market: %w", err)
	}

	if m.IsRestricted(participantID) {
		return domain.Wager{}, domain.ErrConflictOfInterest
	}

	if _, err := s.wagers.Get(ctx, participantID, marketID); err == nil {
		return domain.Wager{}, domain.ErrDuplicateWager
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wager{}, fmt.Errorf("wager_service: check duplicate: %w", err)
	}

	if m.Status != domain.MarketStatusOpen {
		return domain.Wager{}, domain.ErrMarketLocked
	}

	if amount > p.Balance {
		return domain.Wager{}, domain.ErrInsufficientFunds
	}

	outcome, ok := m.OutcomeAt(outcomeIndex)
	if !ok {
		return domain.Wager{}, domain.ErrInvalidOutcome
	}

	return domain.Wager{
		ParticipantID: participantID,
		MarketID:      marketID,
		OutcomeIndex:  outcomeIndex,
		OutcomeName:   outcome.Name,
		Amount:        amount,
		Payout:        odds.Payout(amount, outcome.DecimalOdds),
	}, nil
}

// acquireParticipantLock blocks until the participant's placement lock is
// available or the context ends. The TTL outlives the confirmation window
// so the lock cannot expire under a pending placement.
func (s *WagerService) acquireParticipantLock(ctx context.Context, participantID string) (func(), error) {
	key := "participant:" + participantID
	ttl := s.confirmTimeout + 10*time.Second

	for {
		unlock, err := s.locks.Acquire(ctx, key, ttl)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("wager_service: acquire lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *WagerService) publishWagerEvent(ctx context.Context, typ domain.MarketEventType, w domain.Wager) {
	event := domain.MarketEvent{
		Type:     typ,
		MarketID: w.MarketID,
		Detail:   fmt.Sprintf("%s staked %d on %s", w.ParticipantID, w.Amount, w.OutcomeName),
		At:       time.Now().UTC(),
	}
	if err := s.presenter.PublishMarketEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "wager_service: publish event failed",
			slog.String("event", string(typ)),
			slog.Int64("market_id", w.MarketID),
			slog.String("error", err.Error()),
		)
	}
}
