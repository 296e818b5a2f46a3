package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type AlertRepo struct {
	mu     sync.RWMutex
	alerts map[string]domain.Alert
}

func NewAlertRepo() *AlertRepo {
	return &AlertRepo{alerts: make(map[string]domain.Alert)}
}

func (r *AlertRepo) Create(_ context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; exists {
		return domain.ErrAlertExists
	}
	if alert.Active {
		for _, a := range r.alerts {
			if a.Active && sameTrigger(a, *alert) {
				return domain.ErrAlertExists
			}
		}
	}
	r.alerts[alert.ID] = *alert
	return nil
}

// активный алерт с тем же тикером, условием и порогом может быть только один
func sameTrigger(a, b domain.Alert) bool {
	return a.Symbol == b.Symbol && a.Condition == b.Condition && a.Threshold == b.Threshold
}

// List - в порядке создания
func (r *AlertRepo) List(_ context.Context, activeOnly bool) ([]domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

func (r *AlertRepo) Get(_ context.Context, id string) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	return &a, nil
}

func (r *AlertRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return domain.ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

func (r *AlertRepo) MarkTriggered(_ context.Context, id string, at time.Time, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.Active = false
	a.TriggeredAt = &at
	a.LastPrice = price
	r.alerts[id] = a
	return nil
}

func (r *AlertRepo) UpdateLastPrice(_ context.Context, id string, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.LastPrice = price
	r.alerts[id] = a
	return nil
}
