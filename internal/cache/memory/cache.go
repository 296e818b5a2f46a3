package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/cache"
)

const (
	DefaultCleanupInterval = 5 * time.Minute
	DefaultMaxEntries      = 10000
)

type Options struct {
	CleanupInterval time.Duration
	// при переполнении вытесняется запись, которая истекает раньше всех
	MaxEntries int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache - кеш в памяти процесса, значения копируются на входе
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

func New() *Cache {
	return NewWithOptions(context.Background(), Options{})
}

// NewWithOptions запускает фоновую чистку, которая живет до отмены ctx или Stop
func NewWithOptions(ctx context.Context, opts Options) *Cache {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	c := &Cache{
		entries:    make(map[string]entry),
		maxEntries: opts.MaxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.sweepLoop(ctx, opts.CleanupInterval)
	return c
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(context.Background(), key)
	}
	e := entry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.sweepLocked()
		if len(c.entries) >= c.maxEntries {
			c.evictLocked()
		}
	}
	c.entries[key] = e
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len считает и просроченные записи, которые еще не вычищены
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked()
			c.mu.Unlock()
		}
	}
}

func (c *Cache) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) evictLocked() {
	var (
		victim string
		first  time.Time
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(first) {
			victim, first, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

var _ cache.Cache = (*Cache)(nil)
