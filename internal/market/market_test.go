package market_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/cache/memory"
	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/market/mock"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

func TestFetchAll_KeepsPerSymbolErrors(t *testing.T) {
	p := mock.New().
		WithCloses("AAPL", 100, 101, 102).
		WithCloses("MSFT", 300, 305).
		WithError("TSLA", market.ErrRateLimit)

	res, err := market.FetchAll(context.Background(), p, []string{"AAPL", "TSLA", "MSFT", "NOPE"}, domain.Timeframe1Y)
	require.NoError(t, err)

	require.Len(t, res.Snapshots, 4)
	assert.Equal(t, "AAPL", res.Snapshots[0].Symbol)
	assert.Nil(t, res.Snapshots[1])
	assert.Equal(t, "MSFT", res.Snapshots[2].Symbol)
	assert.Nil(t, res.Snapshots[3])

	assert.ErrorIs(t, res.Errors["TSLA"], market.ErrRateLimit)
	assert.ErrorIs(t, res.Errors["NOPE"], market.ErrSymbolNotFound)
	assert.Len(t, res.Available(), 2)
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	p := mock.New().WithCloses("AAPL", 1, 2).WithDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := market.FetchAll(ctx, p, []string{"AAPL"}, domain.Timeframe1Y)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCached_HitsCacheOnSecondCall(t *testing.T) {
	p := mock.New().WithCloses("NVDA", 100, 110, 121)
	c := memory.New()
	defer c.Stop()

	cached := market.NewCached(p, c, time.Minute, zap.NewNop())

	first, err := cached.Snapshot(context.Background(), "NVDA", domain.Timeframe3M)
	require.NoError(t, err)
	second, err := cached.Snapshot(context.Background(), "NVDA", domain.Timeframe3M)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, first.Quote.Price, second.Quote.Price)
	assert.Len(t, second.Bars, 3)
	assert.Equal(t, domain.Timeframe3M, second.Timeframe)

	_, err = cached.Snapshot(context.Background(), "NVDA", domain.Timeframe1Y)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Calls(), "different timeframe is a different key")
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	p := mock.New().WithError("AMD", market.ErrRequestFailed)
	c := memory.New()
	defer c.Stop()

	cached := market.NewCached(p, c, time.Minute, zap.NewNop())
	_, err := cached.Snapshot(context.Background(), "AMD", domain.Timeframe1Y)
	require.Error(t, err)

	_, ok, _ := c.Get(context.Background(), market.CacheKey("AMD", domain.Timeframe1Y))
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "market:AAPL:6mo", market.CacheKey("AAPL", domain.Timeframe6M))
}

func TestInstrumented_RecordsStatus(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	p := market.NewInstrumented(mock.New().WithCloses("AAPL", 1, 2), m)

	_, _ = p.Snapshot(context.Background(), "AAPL", domain.Timeframe1Y)
	_, _ = p.Snapshot(context.Background(), "NOPE", domain.Timeframe1Y)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketRequestsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketRequestsTotal.WithLabelValues("not_found")))
}
