package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

// Named - провайдер поиска с именем для логов и метрик
type Named struct {
	Name   string
	Client SearchClient
}

// Multi - опрашивает всех провайдеров параллельно, склеивает и дедуплицирует по URL.
// Ошибка возвращается только если не ответил никто.
type Multi struct {
	providers []Named
	trust     *TrustList
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewMulti(providers []Named, trust *TrustList, m *metrics.Metrics, logger *zap.Logger) *Multi {
	if trust == nil {
		trust = DefaultTrustList()
	}
	return &Multi{
		providers: providers,
		trust:     trust,
		metrics:   m,
		logger:    logger,
	}
}

func (m *Multi) Providers() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name
	}
	return names
}

func (m *Multi) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if len(m.providers) == 0 {
		return nil, ErrEmptyResults
	}

	start := time.Now()
	responses := make([]*SearchResponse, len(m.providers))
	errs := make([]error, len(m.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range m.providers {
		g.Go(func() error {
			t := time.Now()
			resp, err := p.Client.Search(gctx, req)
			m.record(p.Name, err, time.Since(t))
			if err != nil {
				// ErrEmptyResults - обычная ситуация, не шумим
				if !errors.Is(err, ErrEmptyResults) {
					m.logger.Warn("search provider failed",
						zap.String("provider", p.Name),
						zap.String("query", req.Query),
						zap.Error(err),
					)
				}
				errs[i] = err
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		merged []SearchResult
		seen   = make(map[string]bool)
	)
	for i, resp := range responses {
		if resp == nil {
			continue
		}
		for _, r := range resp.Results {
			key := normalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if r.Provider == "" {
				r.Provider = m.providers[i].Name
			}
			merged = append(merged, r)
		}
	}

	if len(merged) == 0 {
		return nil, firstError(errs)
	}

	merged = m.trust.Rank(merged)
	if req.MaxResults > 0 && len(merged) > req.MaxResults {
		merged = merged[:req.MaxResults]
	}

	return &SearchResponse{
		Query:        req.Query,
		Results:      merged,
		ResponseTime: time.Since(start).Seconds(),
	}, nil
}

func (m *Multi) record(provider string, err error, d time.Duration) {
	if m.metrics == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, ErrEmptyResults):
		status = "empty"
	case err != nil:
		status = "error"
	}
	m.metrics.RecordSearchRequest(provider, status, d)
}

// firstError - пустая выдача у всех это ErrEmptyResults, иначе первая реальная ошибка
func firstError(errs []error) error {
	var real []string
	var first error
	for _, err := range errs {
		if err == nil || errors.Is(err, ErrEmptyResults) {
			continue
		}
		if first == nil {
			first = err
		}
		real = append(real, err.Error())
	}
	if first == nil {
		return ErrEmptyResults
	}
	if len(real) == 1 {
		return first
	}
	return fmt.Errorf("%w: %s", ErrSearchFailed, strings.Join(real, "; "))
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(strings.ToLower(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

// Concurrent-safe сборка результатов нескольких запросов подряд
type Collector struct {
	mu      sync.Mutex
	seen    map[string]bool
	results []SearchResult
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

func (c *Collector) Add(results []SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range results {
		key := normalizeURL(r.URL)
		if key == "" || c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.results = append(c.results, r)
	}
}

func (c *Collector) Results() []SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SearchResult(nil), c.results...)
}
