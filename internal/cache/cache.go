package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

var ErrUnavailable = errors.New("cache unavailable")

// Cache - хранилище сериализованных значений с TTL.
// Промах кеша - (nil, false, nil), ошибка только при сбое бэкенда.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// битая запись равносильна промаху
		_ = c.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Instrumented считает попадания и промахи под именем name
type Instrumented struct {
	next    Cache
	name    string
	metrics *metrics.Metrics
}

func NewInstrumented(next Cache, name string, m *metrics.Metrics) Cache {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, name: name, metrics: m}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := c.next.Get(ctx, key)
	if err == nil {
		if ok {
			c.metrics.RecordCacheHit(c.name)
		} else {
			c.metrics.RecordCacheMiss(c.name)
		}
	}
	return raw, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}

func (c *Instrumented) Delete(ctx context.Context, key string) error {
	return c.next.Delete(ctx, key)
}
