package market

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrRateLimit      = errors.New("market data rate limit exceeded")
	ErrRequestFailed  = errors.New("market data request failed")
)

type Provider interface {
	Snapshot(ctx context.Context, symbol string, tf domain.Timeframe) (*domain.Snapshot, error)
}

// Result - снимки по порядку symbols, nil там где тикер не загрузился
type Result struct {
	Symbols   []string
	Snapshots []*domain.Snapshot
	Errors    map[string]error
}

func (r *Result) Available() []*domain.Snapshot {
	out := make([]*domain.Snapshot, 0, len(r.Snapshots))
	for _, s := range r.Snapshots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// FetchAll грузит тикеры параллельно. Ошибка отдельного тикера не прерывает остальные,
// наружу возвращается только отмена ctx.
func FetchAll(ctx context.Context, p Provider, symbols []string, tf domain.Timeframe) (*Result, error) {
	res := &Result{
		Symbols:   symbols,
		Snapshots: make([]*domain.Snapshot, len(symbols)),
		Errors:    make(map[string]error),
	}
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			snap, err := p.Snapshot(gctx, sym, tf)
			if err != nil {
				errs[i] = err
				return nil
			}
			res.Snapshots[i] = snap
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err != nil {
			res.Errors[symbols[i]] = err
		}
	}
	return res, nil
}

type Instrumented struct {
	next    Provider
	metrics *metrics.Metrics
}

func NewInstrumented(next Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, metrics: m}
}

func (p *Instrumented) Snapshot(ctx context.Context, symbol string, tf domain.Timeframe) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := p.next.Snapshot(ctx, symbol, tf)

	status := "success"
	switch {
	case errors.Is(err, ErrSymbolNotFound):
		status = "not_found"
	case errors.Is(err, ErrRateLimit):
		status = "rate_limit"
	case err != nil:
		status = "error"
	}
	p.metrics.RecordMarketRequest(status, time.Since(start))
	return snap, err
}
