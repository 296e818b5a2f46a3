package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/market"
)

type Provider struct {
	Snapshots map[string]*domain.Snapshot
	Errors    map[string]error
	Delay     time.Duration

	CallCount int
	Symbols   []string

	mu sync.Mutex
}

func New() *Provider {
	return &Provider{
		Snapshots: make(map[string]*domain.Snapshot),
		Errors:    make(map[string]error),
	}
}

func (p *Provider) WithSnapshot(s *domain.Snapshot) *Provider {
	p.Snapshots[s.Symbol] = s
	return p
}

// WithCloses - снимок из ряда закрытий, по бару на день
func (p *Provider) WithCloses(symbol string, closes ...float64) *Provider {
	return p.WithSnapshot(Snapshot(symbol, closes...))
}

func (p *Provider) WithError(symbol string, err error) *Provider {
	p.Errors[symbol] = err
	return p
}

func (p *Provider) WithDelay(d time.Duration) *Provider {
	p.Delay = d
	return p
}

// SetPrice меняет котировку на лету, нужно тестам алертов
func (p *Provider) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.Snapshots[symbol]
	if !ok {
		s = Snapshot(symbol)
		p.Snapshots[symbol] = s
	}
	s.Quote.PreviousClose = s.Quote.Price
	s.Quote.Price = price
}

func (p *Provider) Snapshot(ctx context.Context, symbol string, tf domain.Timeframe) (*domain.Snapshot, error) {
	p.mu.Lock()
	p.CallCount++
	p.Symbols = append(p.Symbols, symbol)
	delay := p.Delay
	err := p.Errors[symbol]
	snap, ok := p.Snapshots[symbol]
	var cp domain.Snapshot
	if ok {
		cp = *snap
		cp.Bars = append([]domain.Bar(nil), snap.Bars...)
	}
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrSymbolNotFound)
	}
	cp.Timeframe = tf
	return &cp, nil
}

func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CallCount
}

// Snapshot собирает снимок с дневными барами, котировка = последнее закрытие
func Snapshot(symbol string, closes ...float64) *domain.Snapshot {
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}

	s := &domain.Snapshot{
		Symbol:    symbol,
		Timeframe: domain.DefaultTimeframe,
		Bars:      bars,
		Quote:     domain.Quote{Symbol: symbol, Currency: "USD", Exchange: "NASDAQ"},
		Info:      domain.CompanyInfo{Name: symbol + " Inc."},
		FetchedAt: start,
	}
	if n := len(closes); n > 0 {
		s.Quote.Price = closes[n-1]
		if n > 1 {
			s.Quote.PreviousClose = closes[n-2]
		}
	}
	return s
}

var _ market.Provider = (*Provider)(nil)
