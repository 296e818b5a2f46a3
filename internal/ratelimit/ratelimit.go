package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - sliding window по ключу клиента (IP для HTTP, chat id для бота)
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

type Config struct {
	RequestsPerMinute int
	Window            time.Duration // по умолчанию минута
}

func New(cfg Config) *Limiter {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext - фоновая очистка останавливается вместе с ctx
func NewWithContext(ctx context.Context, cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go l.cleanup(ctx)
	return l
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.freshLocked(key, now)

	if len(fresh) >= l.limit {
		l.requests[key] = fresh
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

func (l *Limiter) RemainingRequests(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	cnt := 0
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			cnt++
		}
	}

	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится ближайший слот
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ts := l.freshLocked(key, now)
	if len(ts) == 0 {
		return now
	}

	oldest := ts[0]
	for _, t := range ts[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	return oldest.Add(l.window)
}

// RetryAfter - для заголовка Retry-After, минимум секунда
func (l *Limiter) RetryAfter(key string) time.Duration {
	d := time.Until(l.ResetTime(key))
	if d < time.Second {
		return time.Second
	}
	return d
}

func (l *Limiter) freshLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

func (l *Limiter) cleanup(ctx context.Context) {
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.removeStale()
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.requests {
		if fresh := l.freshLocked(key, now); len(fresh) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = fresh
		}
	}
}
