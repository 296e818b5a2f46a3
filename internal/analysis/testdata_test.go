package analysis

import (
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

func snapshotFromCloses(symbol string, closes []float64, info domain.CompanyInfo) *domain.Snapshot {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
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
	return &domain.Snapshot{
		Symbol:    symbol,
		Timeframe: domain.Timeframe1Y,
		Quote:     domain.Quote{Symbol: symbol, Currency: "USD"},
		Info:      info,
		Bars:      bars,
	}
}
