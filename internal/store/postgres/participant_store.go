package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunabets/fairydust/internal/domain"
)

// ParticipantStore implements domain.ParticipantStore using PostgreSQL.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

// NewParticipantStore creates a ParticipantStore backed by the given pool.
func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

// Ensure returns the participant, inserting it with the starting balance on
// first reference.
func (s *ParticipantStore) Ensure(ctx context.Context, id string, startingBalance int64) (domain.Participant, error) {
	const query = `
		INSERT INTO participants (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, id, startingBalance); err != nil {
		return domain.Participant{}, fmt.Errorf("postgres: ensure participant %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Get retrieves a participant by ID.
func (s *ParticipantStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx,
		`SELECT id, balance, last_daily, created_at FROM participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.Balance, &p.LastDaily, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participant{}, domain.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("postgres: get participant %s: %w", id, err)
	}
	return p, nil
}

// IncrementBalance atomically adjusts the balance by delta. The guard in the
// WHERE clause makes the non-negative invariant a single-statement check, so
// there is no read-modify-write race.
func (s *ParticipantStore) IncrementBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx,
		`UPDATE participants SET balance = balance + $2
		 WHERE id = $1 AND balance + $2 >= 0
		 RETURNING balance`,
		id, delta,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, s.classifyNoRows(ctx, id)
		}
		return 0, fmt.Errorf("postgres: increment balance %s: %w", id, err)
	}
	return newBalance, nil
}

// classifyNoRows distinguishes a missing participant from a rejected debit.
func (s *ParticipantStore) classifyNoRows(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check participant %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientFunds
}

// ClaimDaily credits the reward and stamps the claim time in one statement.
func (s *ParticipantStore) ClaimDaily(ctx context.Context, id string, reward int64, claimedAt time.Time) (int64, error) {
	var newBalance int64
	err := s.pool.QueryRow(ctx,
		`UPDATE participants SET balance = balance + $2, last_daily = $3
		 WHERE id = $1
		 RETURNING balance`,
		id, reward, claimedAt,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: claim daily %s: %w", id, err)
	}
	return newBalance, nil
}

// TopBalances returns participants ordered by balance, richest first.
func (s *ParticipantStore) TopBalances(ctx context.Context, limit int) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, balance, last_daily, created_at FROM participants
		 ORDER BY balance DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: top balances: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Balance, &p.LastDaily, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: top balances rows: %w", err)
	}
	return out, nil
}

// AppendHistory appends an immutable receipt to the participant's history.
func (s *ParticipantStore) AppendHistory(ctx context.Context, id string, r domain.Receipt) error {
	const query = `
		INSERT INTO history (participant_id, market_title, outcome_name, amount, result, amount_won, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		id, r.MarketTitle, r.OutcomeName, r.Amount, string(r.Result), r.AmountWon, r.ResolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: append history %s: %w", id, err)
	}
	return nil
}

// ListHistory returns receipts in append order.
func (s *ParticipantStore) ListHistory(ctx context.Context, id string, opts domain.ListOpts) ([]domain.Receipt, error) {
	query := `SELECT id, market_title, outcome_name, amount, result, amount_won, resolved_at
		FROM history WHERE participant_id = $1 ORDER BY id ASC`
	args := []any{id}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history %s: %w", id, err)
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var result string
		if err := rows.Scan(&r.ID, &r.MarketTitle, &r.OutcomeName, &r.Amount, &result, &r.AmountWon, &r.ResolvedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan receipt: %w", err)
		}
		r.Result = domain.WagerResult(result)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list history rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ParticipantStore = (*ParticipantStore)(nil)
