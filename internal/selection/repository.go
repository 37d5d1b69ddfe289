package selection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// Repository persists picks in PostgreSQL
// ⭐ SSOT: Pick 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new pick repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavePick inserts one pick row
func (r *Repository) SavePick(ctx context.Context, pick *contracts.Pick) error {
	reasonsJSON, err := json.Marshal(pick.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := `
		INSERT INTO watch.picks (
			id, run_id, ticker, rank, reasons, explanation, price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	price := decimal.NullDecimal{Decimal: pick.PriceAtSelection, Valid: !pick.PriceAtSelection.IsZero()}

	_, err = r.pool.Exec(ctx, query,
		pick.ID, pick.RunID, pick.Ticker, pick.Rank,
		reasonsJSON, pick.ExplanationText, price, pick.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%w: insert pick %s: %w", contracts.ErrPersistence, pick.Ticker, err)
	}

	return nil
}

// LatestPicks returns the most recent picks, newest first
func (r *Repository) LatestPicks(ctx context.Context, limit int) ([]contracts.Pick, error) {
	query := `
		SELECT id::text, run_id::text, ticker, rank, reasons, explanation, price, created_at
		FROM watch.picks
		ORDER BY created_at DESC, rank ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	picks := make([]contracts.Pick, 0)

	for rows.Next() {
		var p contracts.Pick
		var reasonsJSON []byte
		var price decimal.NullDecimal

		err := rows.Scan(
			&p.ID, &p.RunID, &p.Ticker, &p.Rank,
			&reasonsJSON, &p.ExplanationText, &price, &p.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(reasonsJSON, &p.Reasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
		}
		if price.Valid {
			p.PriceAtSelection = price.Decimal
		}

		picks = append(picks, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return picks, nil
}
