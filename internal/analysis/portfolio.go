package analysis

import (
	"math"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type HoldingStats struct {
	Symbol         string
	Weight         float64
	MarketCapShare float64
	Sector         string
	Price          float64
	Volatility     float64
	ExpectedReturn float64
}

type Portfolio struct {
	Holdings       []HoldingStats
	ExpectedReturn float64 // годовая
	Volatility     float64 // годовая
	Sharpe         float64
	HasRisk        bool
	SectorWeights  map[string]float64
}

// PortfolioStats - snapshots и weights по позициям; nil снапшот значит данных нет,
// его вес перераспределяется на остальные
func PortfolioStats(snapshots []*domain.Snapshot, weights []float64) Portfolio {
	p := Portfolio{SectorWeights: make(map[string]float64)}
	if len(snapshots) == 0 || len(snapshots) != len(weights) {
		return p
	}

	var totalCap, totalWeight float64
	for i, s := range snapshots {
		if s == nil {
			continue
		}
		totalCap += s.Info.MarketCap
		totalWeight += weights[i]
	}
	if totalWeight == 0 {
		return p
	}

	var (
		returns [][]float64
		ws      []float64
	)
	for i, s := range snapshots {
		if s == nil {
			continue
		}
		w := weights[i] / totalWeight
		h := HoldingStats{
			Symbol: s.Symbol,
			Weight: w,
			Sector: s.Info.Sector,
			Price:  s.CurrentPrice(),
		}
		if totalCap > 0 {
			h.MarketCapShare = s.Info.MarketCap / totalCap
		}

		rets := Returns(s.Closes())
		h.Volatility, _ = AnnualizedVolatility(rets, 252)
		h.ExpectedReturn = mean(rets) * 252

		sector := h.Sector
		if sector == "" {
			sector = "Unknown"
		}
		p.SectorWeights[sector] += w

		p.Holdings = append(p.Holdings, h)
		returns = append(returns, rets)
		ws = append(ws, w)
	}

	// выравниваем доходности по самому короткому ряду (общий хвост)
	n := math.MaxInt
	for _, r := range returns {
		if len(r) < n {
			n = len(r)
		}
	}
	if n < 2 {
		return p
	}
	for i := range returns {
		returns[i] = returns[i][len(returns[i])-n:]
	}

	var variance float64
	for i := range returns {
		p.ExpectedReturn += ws[i] * mean(returns[i]) * 252
		for j := range returns {
			variance += ws[i] * ws[j] * covariance(returns[i], returns[j])
		}
	}
	p.Volatility = math.Sqrt(variance * 252)
	p.HasRisk = true
	if p.Volatility > 0 {
		p.Sharpe = (p.ExpectedReturn - RiskFreeRate) / p.Volatility
	}
	return p
}

// выборочная ковариация рядов одинаковой длины
func covariance(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	ma, mb := mean(a), mean(b)
	var sum float64
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a)-1)
}

func AllocationAdvice(rt domain.RiskTolerance) []string {
	switch rt {
	case domain.RiskConservative:
		return []string{
			"Focus on large-cap, stable companies",
			"Consider dividend-paying stocks",
			"Maintain 60-70% in blue-chip stocks",
			"Add 20-30% in bonds or bond ETFs",
			"Keep 10-20% in cash for opportunities",
		}
	case domain.RiskAggressive:
		return []string{
			"Focus on growth stocks",
			"Consider emerging markets",
			"Maintain 80-90% in stocks",
			"Add 5-15% in bonds",
			"Consider alternative investments",
		}
	default:
		return []string{
			"Balance between growth and value",
			"Diversify across sectors",
			"Consider 70-80% in stocks",
			"Add 15-25% in bonds",
			"Keep 5-10% in cash",
		}
	}
}
