package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunabets/fairydust/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// WagerStore implements domain.WagerStore using PostgreSQL. Commit, Refund,
// and Settle each run as a single transaction so a concurrent reader never
// observes a debit without its wager or a credit without its receipt.
type WagerStore struct {
	pool *pgxpool.Pool
}

// NewWagerStore creates a WagerStore backed by the given pool.
func NewWagerStore(pool *pgxpool.Pool) *WagerStore {
	return &WagerStore{pool: pool}
}

// Commit re-checks market state, debits the stake, and inserts the wager in
// one transaction. The FOR UPDATE on the market row serializes against the
// lock scheduler's compare-and-set, closing the stage-then-lock race.
func (s *WagerStore) Commit(ctx context.Context, w domain.Wager) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin commit wager: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM markets WHERE id = $1 FOR UPDATE`, w.MarketID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrMarketNotFound
		}
		return 0, fmt.Errorf("postgres: commit wager: market %d: %w", w.MarketID, err)
	}
	if domain.MarketStatus(status) != domain.MarketStatusOpen {
		return 0, domain.ErrMarketLocked
	}

	var newBalance int64
	err = tx.QueryRow(ctx,
		`UPDATE participants SET balance = balance - $2
		 WHERE id = $1 AND balance >= $2
		 RETURNING balance`,
		w.ParticipantID, w.Amount,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientFunds
		}
		return 0, fmt.Errorf("postgres: commit wager: debit %s: %w", w.ParticipantID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wagers (participant_id, market_id, outcome_index, outcome_name, amount, payout, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ParticipantID, w.MarketID, w.OutcomeIndex, w.OutcomeName, w.Amount, w.Payout, w.PlacedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateWager
		}
		return 0, fmt.Errorf("postgres: commit wager: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit wager: %w", err)
	}
	return newBalance, nil
}

// scanWager scans a single wager row.
func scanWager(row pgx.Row) (domain.Wager, error) {
	var w domain.Wager
	err := row.Scan(&w.ParticipantID, &w.MarketID, &w.OutcomeIndex, &w.OutcomeName, &w.Amount, &w.Payout, &w.PlacedAt)
	return w, err
}

const wagerCols = `participant_id, market_id, outcome_index, outcome_name, amount, payout, placed_at`

// Get retrieves a participant's open wager on a market.
func (s *WagerStore) Get(ctx context.Context, participantID string, marketID int64) (domain.Wager, error) {
	w, err := scanWager(s.pool.QueryRow(ctx,
		`SELECT `+wagerCols+` FROM wagers WHERE participant_id = $1 AND market_id = $2`,
		participantID, marketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wager{}, domain.ErrNotFound
		}
		return domain.Wager{}, fmt.Errorf("postgres: get wager %s/%d: %w", participantID, marketID, err)
	}
	return w, nil
}

// ListByMarket returns all open wagers on a market in placement order.
func (s *WagerStore) ListByMarket(ctx context.Context, marketID int64) ([]domain.Wager, error) {
	return s.list(ctx,
		`SELECT `+wagerCols+` FROM wagers WHERE market_id = $1 ORDER BY placed_at ASC`, marketID)
}

// ListByParticipant returns a participant's open wagers in placement order.
func (s *WagerStore) ListByParticipant(ctx context.Context, participantID string) ([]domain.Wager, error) {
	return s.list(ctx,
		`SELECT `+wagerCols+` FROM wagers WHERE participant_id = $1 ORDER BY placed_at ASC`, participantID)
}

func (s *WagerStore) list(ctx context.Context, query string, arg any) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list wagers: %w", err)
	}
	defer rows.Close()

	var out []domain.Wager
	for rows.Next() {
		var w domain.Wager
		if err := rows.Scan(&w.ParticipantID, &w.MarketID, &w.OutcomeIndex, &w.OutcomeName, &w.Amount, &w.Payout, &w.PlacedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan wager: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list wagers rows: %w", err)
	}
	return out, nil
}

// Refund credits the exact staked amount back and removes the wager in one
// transaction.
func (s *WagerStore) Refund(ctx context.Context, participantID string, marketID int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin refund: %w", err)
	}
	defer tx.Rollback(ctx)

	var amount int64
	err = tx.QueryRow(ctx,
		`DELETE FROM wagers WHERE participant_id = $1 AND market_id = $2 RETURNING amount`,
		participantID, marketID,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: refund %s/%d: %w", participantID, marketID, err)
	}

	var newBalance int64
	err = tx.QueryRow(ctx,
		`UPDATE participants SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
		participantID, amount,
	).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("postgres: refund credit %s: %w", participantID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: refund commit: %w", err)
	}
	return newBalance, nil
}

// Settle credits winnings (zero for losses), appends the receipt, and
// removes the wager in one transaction.
func (s *WagerStore) Settle(ctx context.Context, participantID string, marketID int64, credit int64, r domain.Receipt) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin settle: %w", err)
	}
	defer tx.Rollback(ctx)

	var amount int64
	err = tx.QueryRow(ctx,
		`DELETE FROM wagers WHERE participant_id = $1 AND market_id = $2 RETURNING amount`,
		participantID, marketID,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("postgres: settle %s/%d: %w", participantID, marketID, err)
	}

	if credit > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE participants SET balance = balance + $2 WHERE id = $1`,
			participantID, credit); err != nil {
			return fmt.Errorf("postgres: settle credit %s: %w", participantID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO history (participant_id, market_title, outcome_name, amount, result, amount_won, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		participantID, r.MarketTitle, r.OutcomeName, r.Amount, string(r.Result), r.AmountWon, r.ResolvedAt); err != nil {
		return fmt.Errorf("postgres: settle receipt %s: %w", participantID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: settle commit: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.WagerStore = (*WagerStore)(nil)
