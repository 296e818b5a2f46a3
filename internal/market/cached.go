package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/cache"
	"github.com/kitbuilder587/finanalyst/internal/domain"
)

const DefaultCacheTTL = 5 * time.Minute

// Cached - кеширует снимки по ключу market:{symbol}:{timeframe}
type Cached struct {
	next   Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger}
}

func CacheKey(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("market:%s:%s", symbol, tf)
}

func (p *Cached) Snapshot(ctx context.Context, symbol string, tf domain.Timeframe) (*domain.Snapshot, error) {
	key := CacheKey(symbol, tf)

	var snap domain.Snapshot
	ok, err := cache.GetJSON(ctx, p.cache, key, &snap)
	if err != nil {
		// недоступный кеш не должен ронять запрос
		p.logger.Warn("market cache get failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return &snap, nil
	}

	fresh, err := p.next.Snapshot(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, p.cache, key, fresh, p.ttl); err != nil {
		p.logger.Warn("market cache set failed", zap.String("key", key), zap.Error(err))
	}
	return fresh, nil
}
