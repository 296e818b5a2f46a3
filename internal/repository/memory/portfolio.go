package memory

import (
	"context"
	"sync"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type PortfolioRepo struct {
	mu      sync.RWMutex
	results map[string]domain.PortfolioResult
}

func NewPortfolioRepo() *PortfolioRepo {
	return &PortfolioRepo{results: make(map[string]domain.PortfolioResult)}
}

func (r *PortfolioRepo) Save(_ context.Context, result *domain.PortfolioResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.Key] = *result
	return nil
}

func (r *PortfolioRepo) Get(_ context.Context, key string) (*domain.PortfolioResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.results[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}
