package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type AlertRepo struct {
	db *DB
}

func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

const alertColumns = `id, symbol, condition, threshold, created_at, active, triggered_at, last_price`

func (r *AlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		alert.ID,
		alert.Symbol,
		string(alert.Condition),
		alert.Threshold,
		alert.Created,
		alert.Active,
		alert.TriggeredAt,
		alert.LastPrice,
	)
	if err != nil {
		if isDuplicateError(err) {
			return domain.ErrAlertExists
		}
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (r *AlertRepo) List(ctx context.Context, activeOnly bool) ([]domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE ($1 = FALSE OR active)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r *AlertRepo) Get(ctx context.Context, id string) (*domain.Alert, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AlertRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepo) MarkTriggered(ctx context.Context, id string, at time.Time, price float64) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE alerts SET active = FALSE, triggered_at = $2, last_price = $3 WHERE id = $1`,
		id, at, price,
	)
	if err != nil {
		return fmt.Errorf("mark alert triggered: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepo) UpdateLastPrice(ctx context.Context, id string, price float64) error {
	result, err := r.db.Pool.Exec(ctx, `UPDATE alerts SET last_price = $2 WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("update alert price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		a         domain.Alert
		condition string
	)
	err := row.Scan(
		&a.ID,
		&a.Symbol,
		&condition,
		&a.Threshold,
		&a.Created,
		&a.Active,
		&a.TriggeredAt,
		&a.LastPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Condition = domain.AlertCondition(condition)
	return &a, nil
}
