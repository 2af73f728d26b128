package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunabets/fairydust/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. Market
// identifiers come from a BIGSERIAL sequence, so they increase monotonically
// and are never reused after deletion.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Create stores a new market and returns it with its assigned identifier.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) (domain.Market, error) {
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: marshal outcomes: %w", err)
	}
	restricted, err := json.Marshal(restrictedOrEmpty(m.Restricted))
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: marshal restricted: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO markets (title, description, outcomes, status, locks_at, restricted, external_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		m.Title, m.Description, outcomes, string(domain.MarketStatusOpen), m.LocksAt, restricted, m.ExternalRef,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: create market: %w", err)
	}
	m.Status = domain.MarketStatusOpen
	return m, nil
}

func restrictedOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

const marketCols = `id, title, description, outcomes, status, locks_at, restricted, external_ref, created_at, updated_at`

// scanMarket scans a single market row, decoding the JSONB columns.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	var outcomes, restricted []byte
	err := row.Scan(&m.ID, &m.Title, &m.Description, &outcomes, &status,
		&m.LocksAt, &restricted, &m.ExternalRef, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Market{}, err
	}
	if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
		return domain.Market{}, fmt.Errorf("decode outcomes: %w", err)
	}
	if err := json.Unmarshal(restricted, &m.Restricted); err != nil {
		return domain.Market{}, fmt.Errorf("decode restricted: %w", err)
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// Get retrieves a market by ID.
func (s *MarketStore) Get(ctx context.Context, id int64) (domain.Market, error) {
	m, err := scanMarket(s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// List returns active markets ordered by ID.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY id ASC`
	args := []any{}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.query(ctx, query, args...)
}

// ListDue returns open markets whose lock deadline is at or before now.
func (s *MarketStore) ListDue(ctx context.Context, now time.Time) ([]domain.Market, error) {
	return s.query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE status = $1 AND locks_at IS NOT NULL AND locks_at <= $2
		 ORDER BY id ASC`,
		string(domain.MarketStatusOpen), now)
}

func (s *MarketStore) query(ctx context.Context, query string, args ...any) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return out, nil
}

// UpdateOutcomes replaces the odds mapping. Existing wager snapshots keep
// the odds that applied when they were placed.
func (s *MarketStore) UpdateOutcomes(ctx context.Context, id int64, outcomes []domain.Outcome) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("postgres: marshal outcomes: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET outcomes = $2, updated_at = NOW() WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("postgres: update outcomes %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// TransitionStatus performs a compare-and-set on the status column. A false
// return with nil error means the market was not in the from state, which
// callers treat as an idempotent no-op.
func (s *MarketStore) TransitionStatus(ctx context.Context, id int64, from, to domain.MarketStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("postgres: transition market %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM markets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: check market %d: %w", id, err)
	}
	if !exists {
		return false, domain.ErrMarketNotFound
	}
	return false, nil
}

// Delete removes a market from active storage. Remaining wagers cascade.
func (s *MarketStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete market %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
