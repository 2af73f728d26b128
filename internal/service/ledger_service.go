// Package service implements the wagering engine's use cases on top of the
// domain store and cache interfaces. Services own validation and
// orchestration; atomicity lives in the stores.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// LedgerConfig tunes the participant economy.
type LedgerConfig struct {
	StartingBalance int64
	DailyRewardMin  int64
	DailyRewardMax  int64
	DailyCooldown   time.Duration
}

// TransferResult reports both balances after a completed transfer.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
}

// DailyResult reports a successful daily reward claim.
type DailyResult struct {
	Reward     int64
	NewBalance int64
}

// DailyCooldownError reports how long a participant must wait before the
// next daily claim. It unwraps to domain.ErrDailyAlreadyClaimed.
type DailyCooldownError struct {
	Remaining time.Duration
}

func (e *DailyCooldownError) Error() string {
	return fmt.Sprintf("daily reward already claimed: next claim in %s", e.Remaining.Round(time.Second))
}

func (e *DailyCooldownError) Unwrap() error { return domain.ErrDailyAlreadyClaimed }

// LedgerService manages participant balances: lazy account creation,
// transfers, daily rewards, leaderboards, and settled history.
type LedgerService struct {
	participants domain.ParticipantStore
	cfg          LedgerConfig
	logger       *slog.Logger
}

// NewLedgerService creates a LedgerService with all required dependencies.
func NewLedgerService(participants domain.ParticipantStore, cfg LedgerConfig, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		participants: participants,
		cfg:          cfg,
		logger:       logger,
	}
}

// Ensure returns the participant, creating it with the configured starting
// balance on first reference.
func (s *LedgerService) Ensure(ctx context.Context, id string) (domain.Participant, error) {
	p, err := s.participants.Ensure(ctx, id, s.cfg.StartingBalance)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("ledger_service: ensure %s: %w", id, err)
	}
	return p, nil
}

// Balance returns the participant's current balance, creating the account if
// it does not exist yet.
func (s *LedgerService) Balance(ctx context.Context, id string) (int64, error) {
	p, err := s.Ensure(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Balance, nil
}

// Transfer moves amount from one participant to another. The amount must be
// at least one unit and the parties must differ. The debit is atomic against
// the sender's balance; if the credit then fails, the debit is compensated.
func (s *LedgerService) Transfer(ctx context.Context, from, to string, amount int64) (TransferResult, error) {
	if amount < 1 {
		return TransferResult{}, domain.ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, domain.ErrSelfTransfer
	}

	if _, err := s.Ensure(ctx, from); err != nil {
		return TransferResult{}, err
	}
	if _, err := s.Ensure(ctx, to); err != nil {
		return TransferResult{}, err
	}

	fromBalance, err := s.participants.IncrementBalance(ctx, from, -amount)
	if err != nil {
		return TransferResult{}, fmt.Errorf("ledger_service: debit %s: %w", from, err)
	}

	toBalance, err := s.participants.IncrementBalance(ctx, to, amount)
	if err != nil {
		// Put the sender's funds back before reporting the failure.
		if _, refundErr := s.participants.IncrementBalance(ctx, from, amount); refundErr != nil {
			s.logger.ErrorContext(ctx, "ledger_service: transfer compensation failed",
				slog.String("from", from),
				slog.String("to", to),
				slog.Int64("amount", amount),
				slog.String("error", refundErr.Error()),
			)
		}
		return TransferResult{}, fmt.Errorf("ledger_service: credit %s: %w", to, err)
	}

	s.logger.InfoContext(ctx, "ledger_service: transfer completed",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int64("amount", amount),
	)

	return TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// ClaimDaily credits a random reward within the configured bounds, at most
// once per cooldown window. A claim inside the window fails with a
// DailyCooldownError carrying the remaining wait.
func (s *LedgerService) ClaimDaily(ctx context.Context, id string) (DailyResult, error) {
	p, err := s.Ensure(ctx, id)
	if err != nil {
		return DailyResult{}, err
	}

	now := time.Now().UTC()
	if p.LastDaily != nil {
		nextAt := p.LastDaily.Add(s.cfg.DailyCooldown)
		if now.Before(nextAt) {
			return DailyResult{}, &DailyCooldownError{Remaining: nextAt.Sub(now)}
		}
	}

	reward := s.cfg.DailyRewardMin + rand.Int64N(s.cfg.DailyRewardMax-s.cfg.DailyRewardMin+1)

	balance, err := s.participants.ClaimDaily(ctx, id, reward, now)
	if err != nil {
		return DailyResult{}, fmt.Errorf("ledger_service: claim daily %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "ledger_service: daily reward claimed",
		slog.String("participant_id", id),
		slog.Int64("reward", reward),
	)

	return DailyResult{Reward: reward, NewBalance: balance}, nil
}

// Leaderboard returns the top participants by balance, highest first.
func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]domain.Participant, error) {
	out, err := s.participants.TopBalances(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: leaderboard: %w", err)
	}
	return out, nil
}

// History returns the participant's settled wager receipts in settlement
// order.
func (s *LedgerService) History(ctx context.Context, id string, opts domain.ListOpts) ([]domain.Receipt, error) {
	out, err := s.participants.ListHistory(ctx, id, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: history %s: %w", id, err)
	}
	return out, nil
}
