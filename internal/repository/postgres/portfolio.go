package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type PortfolioRepo struct {
	db *DB
}

func NewPortfolioRepo(db *DB) *PortfolioRepo {
	return &PortfolioRepo{db: db}
}

func (r *PortfolioRepo) Save(ctx context.Context, result *domain.PortfolioResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}

	query := `
		INSERT INTO portfolio_cache (key, result, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET result = EXCLUDED.result, created_at = EXCLUDED.created_at
	`
	if _, err := r.db.Pool.Exec(ctx, query, result.Key, raw, result.CreatedAt); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

func (r *PortfolioRepo) Get(ctx context.Context, key string) (*domain.PortfolioResult, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT result FROM portfolio_cache WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio: %w", err)
	}

	var res domain.PortfolioResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("unmarshal portfolio: %w", err)
	}
	return &res, nil
}
