package postgres

import (
	"context"
	"fmt"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type HistoryRepo struct {
	db    *DB
	limit int
}

func NewHistoryRepo(db *DB, limit int) *HistoryRepo {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	return &HistoryRepo{db: db, limit: limit}
}

func (r *HistoryRepo) Append(ctx context.Context, rec *domain.QueryRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	symbols := rec.Symbols
	if symbols == nil {
		symbols = []string{}
	}

	query := `
		INSERT INTO query_history (created_at, question, analysis_type, symbols, timeframe, response_length)
		VALUES (COALESCE($1, NOW()), $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	var ts any
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp
	}

	err = tx.QueryRow(ctx, query,
		ts,
		rec.Question,
		string(rec.AnalysisType),
		symbols,
		string(rec.Timeframe),
		rec.ResponseLength,
	).Scan(&rec.ID, &rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	// обрезаем журнал до последних limit записей
	_, err = tx.Exec(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (SELECT id FROM query_history ORDER BY id DESC LIMIT $1)
	`, r.limit)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}

	query := `
		SELECT id, created_at, question, analysis_type, symbols, timeframe, response_length
		FROM (
			SELECT * FROM query_history ORDER BY id DESC LIMIT $1
		) recent
		ORDER BY id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []domain.QueryRecord
	for rows.Next() {
		var (
			rec          domain.QueryRecord
			analysisType string
			timeframe    string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.Question,
			&analysisType,
			&rec.Symbols,
			&timeframe,
			&rec.ResponseLength,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.AnalysisType = domain.AnalysisType(analysisType)
		rec.Timeframe = domain.Timeframe(timeframe)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM query_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
