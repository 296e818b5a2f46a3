package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type HistoryRepo struct {
	mu      sync.RWMutex
	records []domain.QueryRecord
	limit   int
	nextID  int64
	now     func() time.Time
}

func NewHistoryRepo(limit int) *HistoryRepo {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	return &HistoryRepo{
		limit:  limit,
		nextID: 1,
		now:    time.Now,
	}
}

func (r *HistoryRepo) Append(_ context.Context, rec *domain.QueryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}

	stored := *rec
	stored.Symbols = append([]string(nil), rec.Symbols...)
	r.records = append(r.records, stored)

	if over := len(r.records) - r.limit; over > 0 {
		r.records = append([]domain.QueryRecord(nil), r.records[over:]...)
	}
	return nil
}

func (r *HistoryRepo) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	tail := r.records[len(r.records)-limit:]

	out := make([]domain.QueryRecord, len(tail))
	copy(out, tail)
	return out, nil
}

func (r *HistoryRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}
