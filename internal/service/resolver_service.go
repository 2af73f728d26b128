package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// Settlement is the outcome of resolving a market: winners credited their
// frozen payouts, losers receipted, market removed from active storage.
type Settlement struct {
	Market       domain.Market
	WinningIndex int
	DisplayLabel string
	Winners      []domain.SettlementLine
	Losers       []domain.SettlementLine
}

// Annulment is the outcome of annulling a market: every stake refunded, no
// receipts, market removed from active storage.
type Annulment struct {
	Market   domain.Market
	Reason   string
	Refunded []domain.SettlementLine
}

// ResolverService settles markets. Settlement is best effort per
// participant: one malformed record is logged and skipped, never aborting
// the remaining participants. Each participant's credit, receipt, and wager
// removal is a single store transaction.
type ResolverService struct {
	markets   domain.MarketStore
	wagers    domain.WagerStore
	cache     domain.MarketCache
	presenter domain.Presenter
	archiver  domain.SettlementArchiver
	logger    *slog.Logger
}

// NewResolverService creates a ResolverService. The cache and archiver may
// be nil when those layers are not configured.
func NewResolverService(
	markets domain.MarketStore,
	wagers domain.WagerStore,
	cache domain.MarketCache,
	presenter domain.Presenter,
	archiver domain.SettlementArchiver,
	logger *slog.Logger,
) *ResolverService {
	return &ResolverService{
		markets:   markets,
		wagers:    wagers,
		cache:     cache,
		presenter: presenter,
		archiver:  archiver,
		logger:    logger,
	}
}

// Resolve settles a locked market with the given winning outcome index.
// Winners are credited their frozen payout and receipted with the net
// amount won; losers are receipted with their stake. The market is deleted
// afterward and its identifier is never reused.
func (s *ResolverService) Resolve(ctx context.Context, marketID int64, winningIndex int, displayLabel string) (Settlement, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return Settlement{}, fmt.Errorf("resolver_service: get market %d: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusLocked {
		return Settlement{}, domain.ErrMarketNotLocked
	}
	if _, ok := m.OutcomeAt(winningIndex); !ok {
		return Settlement{}, domain.ErrInvalidOutcome
	}

	wagers, err := s.wagers.ListByMarket(ctx, marketID)
	if err != nil {
		return Settlement{}, fmt.Errorf("resolver_service: list wagers %d: %w", marketID, err)
	}

	settledAt := time.Now().UTC()
	out := Settlement{Market: m, WinningIndex: winningIndex, DisplayLabel: displayLabel}

	for _, w := range wagers {
		won := w.OutcomeIndex == winningIndex

		var credit int64
		receipt := domain.Receipt{
			MarketTitle: m.Title,
			OutcomeName: w.OutcomeName,
			Amount:      w.Amount,
			Result:      domain.WagerResultLoss,
			ResolvedAt:  settledAt,
		}
		if won {
			credit = w.Payout
			receipt.Result = domain.WagerResultWin
			receipt.AmountWon = w.Payout - w.Amount
		}

		if err := s.wagers.Settle(ctx, w.ParticipantID, marketID, credit, receipt); err != nil {
			s.logInconsistent(ctx, w.ParticipantID, marketID, err)
			continue
		}

		line := domain.SettlementLine{
			ParticipantID: w.ParticipantID,
			OutcomeName:   w.OutcomeName,
			Amount:        w.Amount,
			Result:        receipt.Result,
			AmountWon:     receipt.AmountWon,
		}
		if won {
			out.Winners = append(out.Winners, line)
		} else {
			out.Losers = append(out.Losers, line)
		}
	}

	if err := s.markets.Delete(ctx, marketID); err != nil {
		return Settlement{}, fmt.Errorf("resolver_service: delete market %d: %w", marketID, err)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "resolver_service: market resolved",
		slog.Int64("market_id", marketID),
		slog.Int("winning_index", winningIndex),
		slog.Int("winners", len(out.Winners)),
		slog.Int("losers", len(out.Losers)),
	)

	s.publishEvent(ctx, domain.MarketEventResolved, m, displayLabel)
	s.archive(ctx, domain.SettlementReport{
		MarketID:     marketID,
		MarketTitle:  m.Title,
		Kind:         "resolved",
		WinningIndex: winningIndex,
		DisplayLabel: displayLabel,
		Lines:        append(append([]domain.SettlementLine{}, out.Winners...), out.Losers...),
		SettledAt:    settledAt,
	})

	return out, nil
}

// Annul cancels a market and refunds every stake in full. Annulment leaves
// no history receipts. The market may be open or locked; an open market is
// locked first so no new wager can commit while refunds are in flight.
func (s *ResolverService) Annul(ctx context.Context, marketID int64, reason string) (Annulment, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return Annulment{}, fmt.Errorf("resolver_service: get market %d: %w", marketID, err)
	}

	if m.Status == domain.MarketStatusOpen {
		if _, err := s.markets.TransitionStatus(ctx, marketID, domain.MarketStatusOpen, domain.MarketStatusLocked); err != nil {
			return Annulment{}, fmt.Errorf("resolver_service: lock market %d: %w", marketID, err)
		}
	}

	wagers, err := s.wagers.ListByMarket(ctx, marketID)
	if err != nil {
		return Annulment{}, fmt.Errorf("resolver_service: list wagers %d: %w", marketID, err)
	}

	out := Annulment{Market: m, Reason: reason}
	for _, w := range wagers {
		if _, err := s.wagers.Refund(ctx, w.ParticipantID, marketID); err != nil {
			s.logInconsistent(ctx, w.ParticipantID, marketID, err)
			continue
		}
		out.Refunded = append(out.Refunded, domain.SettlementLine{
			ParticipantID: w.ParticipantID,
			OutcomeName:   w.OutcomeName,
			Amount:        w.Amount,
			Refunded:      w.Amount,
		})
	}

	if err := s.markets.Delete(ctx, marketID); err != nil {
		return Annulment{}, fmt.Errorf("resolver_service: delete market %d: %w", marketID, err)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "resolver_service: market annulled",
		slog.Int64("market_id", marketID),
		slog.String("reason", reason),
		slog.Int("refunded", len(out.Refunded)),
	)

	s.publishEvent(ctx, domain.MarketEventAnnulled, m, reason)
	s.archive(ctx, domain.SettlementReport{
		MarketID:    marketID,
		MarketTitle: m.Title,
		Kind:        "annulled",
		Reason:      reason,
		Lines:       out.Refunded,
		SettledAt:   time.Now().UTC(),
	})

	return out, nil
}

func (s *ResolverService) logInconsistent(ctx context.Context, participantID string, marketID int64, err error) {
	// Skipping, not aborting: the remaining participants still settle.
	recordErr := &domain.InconsistentRecordError{
		ParticipantID: participantID,
		MarketID:      marketID,
		Err:           err,
	}
	s.logger.ErrorContext(ctx, "resolver_service: participant settlement failed",
		slog.String("participant_id", participantID),
		slog.Int64("market_id", marketID),
		slog.String("error", recordErr.Error()),
	)
}

func (s *ResolverService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "resolver_service: cache invalidate failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ResolverService) publishEvent(ctx context.Context, typ domain.MarketEventType, m domain.Market, detail string) {
	event := domain.MarketEvent{
		Type:     typ,
		MarketID: m.ID,
		Market:   &m,
		Detail:   detail,
		At:       time.Now().UTC(),
	}
	if err := s.presenter.PublishMarketEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "resolver_service: publish event failed",
			slog.String("event", string(typ)),
			slog.Int64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ResolverService) archive(ctx context.Context, report domain.SettlementReport) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveSettlement(ctx, report); err != nil {
		s.logger.WarnContext(ctx, "resolver_service: archive settlement failed",
			slog.Int64("market_id", report.MarketID),
			slog.String("kind", report.Kind),
			slog.String("error", err.Error()),
		)
	}
}
