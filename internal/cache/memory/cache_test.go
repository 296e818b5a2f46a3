package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/cache"
)

var ctx = context.Background()

func fixedClock(c *Cache, start time.Time) *time.Time {
	now := start
	c.now = func() time.Time { return now }
	return &now
}

func TestCache_SetGetDelete(t *testing.T) {
	c := New()
	defer c.Stop()

	if err := c.Set(ctx, "market:AAPL:1y", []byte(`{"price":190}`), 5*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "market:AAPL:1y")
	if err != nil || !ok || string(got) != `{"price":190}` {
		t.Fatalf("Get() = %s, %v, %v", got, ok, err)
	}

	_ = c.Delete(ctx, "market:AAPL:1y")
	if _, ok, _ := c.Get(ctx, "market:AAPL:1y"); ok {
		t.Error("entry should be gone after Delete")
	}

	got, ok, err = c.Get(ctx, "never-set")
	if err != nil || ok || got != nil {
		t.Errorf("Get(missing) = %v, %v, %v", got, ok, err)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New()
	defer c.Stop()
	now := fixedClock(c, time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC))

	_ = c.Set(ctx, "search:abc", []byte("v"), time.Minute)
	*now = now.Add(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "search:abc"); !ok {
		t.Fatal("entry should live until its TTL")
	}

	*now = now.Add(time.Second)
	if _, ok, _ := c.Get(ctx, "search:abc"); ok {
		t.Error("entry should expire exactly at TTL")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d before sweep, want 1", c.Len())
	}

	c.mu.Lock()
	c.sweepLocked()
	c.mu.Unlock()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", c.Len())
	}
}

func TestCache_NonPositiveTTLDeletes(t *testing.T) {
	c := New()
	defer c.Stop()

	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	_ = c.Set(ctx, "k", []byte("v2"), 0)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("zero TTL should drop the entry")
	}
}

func TestCache_MaxEntries(t *testing.T) {
	c := NewWithOptions(ctx, Options{MaxEntries: 3})
	defer c.Stop()
	now := fixedClock(c, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	_ = c.Set(ctx, "short", []byte("1"), time.Minute)
	_ = c.Set(ctx, "long", []byte("2"), time.Hour)
	_ = c.Set(ctx, "mid", []byte("3"), 10*time.Minute)

	_ = c.Set(ctx, "new", []byte("4"), time.Hour)
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("entry expiring first should be evicted")
	}

	// перезапись существующего ключа не вытесняет соседей
	_ = c.Set(ctx, "mid", []byte("3b"), time.Hour)
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Error("overwrite must not evict")
	}

	// сначала вычищаются просроченные
	*now = now.Add(2 * time.Hour)
	_ = c.Set(ctx, "fresh", []byte("5"), time.Hour)
	if c.Len() != 1 {
		t.Errorf("Len() = %d after expired sweep, want 1", c.Len())
	}
}

func TestCache_SetCopiesValue(t *testing.T) {
	c := New()
	defer c.Stop()

	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, time.Hour)
	buf[0] = 'x'

	if got, _, _ := c.Get(ctx, "k"); string(got) != "abc" {
		t.Errorf("Get() = %s, want abc", got)
	}
}

func TestCache_StopAndCancel(t *testing.T) {
	c := New()
	c.Stop()
	c.Stop()

	cctx, cancel := context.WithCancel(context.Background())
	c = NewWithOptions(cctx, Options{CleanupInterval: 10 * time.Millisecond})
	cancel()
	time.Sleep(20 * time.Millisecond)

	_ = c.Set(ctx, "after-cancel", []byte("value"), time.Hour)
	if _, ok, _ := c.Get(ctx, "after-cancel"); !ok {
		t.Error("cache should keep working without the sweeper")
	}
}

func TestCache_JSONHelpers(t *testing.T) {
	c := New()
	defer c.Stop()

	type quote struct {
		Symbol string
		Price  float64
	}

	if err := cache.SetJSON(ctx, c, "q", quote{"MSFT", 410.5}, time.Hour); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	var got quote
	if ok, err := cache.GetJSON(ctx, c, "q", &got); err != nil || !ok || got.Price != 410.5 {
		t.Fatalf("GetJSON() = %+v, %v, %v", got, ok, err)
	}

	_ = c.Set(ctx, "broken", []byte("{not json"), time.Hour)
	if ok, err := cache.GetJSON(ctx, c, "broken", &got); err != nil || ok {
		t.Errorf("GetJSON(broken) = %v, %v; want miss", ok, err)
	}
	if _, exists, _ := c.Get(ctx, "broken"); exists {
		t.Error("broken entry should be evicted")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewWithOptions(ctx, Options{MaxEntries: 50})
	defer c.Stop()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 300; j++ {
				key := fmt.Sprintf("k%d", (w*300+j)%80)
				switch j % 3 {
				case 0:
					_ = c.Set(ctx, key, []byte{byte(j)}, time.Hour)
				case 1:
					_, _, _ = c.Get(ctx, key)
				default:
					_ = c.Delete(ctx, key)
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d, exceeds MaxEntries", c.Len())
	}
}
