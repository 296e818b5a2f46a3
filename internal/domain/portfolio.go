package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type PortfolioRequest struct {
	Symbols       []string
	Weights       []float64 // nil = равные веса
	RiskTolerance RiskTolerance
}

func (p *PortfolioRequest) Normalize() {
	if p.RiskTolerance == "" {
		p.RiskTolerance = RiskModerate
	}
	// веса привязаны к позициям, поэтому без дедупликации если они заданы
	if len(p.Weights) == 0 {
		p.Symbols = NormalizeSymbols(p.Symbols)
		return
	}
	for i := range p.Symbols {
		p.Symbols[i] = strings.ToUpper(strings.TrimSpace(p.Symbols[i]))
	}
}

func (p *PortfolioRequest) Validate() error {
	if len(p.Symbols) == 0 {
		return ErrNoSymbols
	}
	if err := ValidateSymbols(p.Symbols); err != nil {
		return err
	}
	if !p.RiskTolerance.IsValid() {
		return ErrInvalidRiskTolerance
	}
	if len(p.Weights) == 0 {
		return nil
	}
	if len(p.Weights) != len(p.Symbols) {
		return ErrWeightsMismatch
	}
	var sum float64
	for _, w := range p.Weights {
		if w < 0 {
			return ErrNegativeWeight
		}
		sum += w
	}
	if sum <= 0 {
		return ErrZeroWeights
	}
	return nil
}

// NormalizedWeights - веса с суммой 1; без весов - поровну
func (p *PortfolioRequest) NormalizedWeights() []float64 {
	n := len(p.Symbols)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	var sum float64
	if len(p.Weights) == n {
		for _, w := range p.Weights {
			sum += w
		}
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1 / float64(n)
		}
		return out
	}

	for i, w := range p.Weights {
		out[i] = w / sum
	}
	return out
}

// CacheKey - ключ для кеша результатов портфельного анализа
func (p *PortfolioRequest) CacheKey() string {
	weights := p.NormalizedWeights()
	parts := make([]string, len(p.Symbols))
	for i, s := range p.Symbols {
		parts[i] = fmt.Sprintf("%s:%.4f", s, weights[i])
	}
	sort.Strings(parts)
	return "portfolio:" + string(p.RiskTolerance) + ":" + strings.Join(parts, ",")
}

type Holding struct {
	Symbol         string
	Weight         float64
	MarketCapShare float64
	Sector         string
	Price          float64
}

type PortfolioResult struct {
	Key           string
	Symbols       []string
	Weights       []float64
	RiskTolerance RiskTolerance
	Analysis      string
	Holdings      []Holding
	Offline       bool
	CreatedAt     time.Time
}
