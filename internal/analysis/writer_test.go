package analysis

import (
	"strings"
	"testing"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/search"
	"github.com/stretchr/testify/assert"
)

func TestWriter_Render(t *testing.T) {
	snap := snapshotFromCloses("AAPL", rising(60, 100, 1), domain.CompanyInfo{
		MarketCap: 3e12,
		Sector:    "Technology",
		Industry:  "Consumer Electronics",
	})
	news := []search.SearchResult{
		{Title: "Apple beats estimates", Content: "Strong growth in services", URL: "https://reuters.com/a"},
	}

	tests := []struct {
		at   domain.AnalysisType
		want []string
	}{
		{domain.AnalysisQuick, []string{"# Quick Analysis", "**AAPL**: $159.00", "Market Cap: $3000.00B", "Sector: Technology"}},
		{domain.AnalysisComprehensive, []string{"### Latest Market News", "1. **Apple beats estimates**", "#### AAPL Analysis", "Consumer Electronics"}},
		{domain.AnalysisTechnical, []string{"### AAPL Technical Indicators", "**20-Day SMA**", "**Trend**: Bullish", "**Volume**: 1,000,000"}},
		{domain.AnalysisRisk, []string{"#### AAPL Risk Profile", "**Volatility**", "Risk Mitigation Strategies"}},
		{domain.AnalysisSentiment, []string{"**Overall Sentiment**: Bullish", "Positive signals: 2"}},
		{domain.AnalysisPortfolio, []string{"### Portfolio Composition", "**AAPL**: 100.0% of portfolio"}},
	}

	w := NewWriter()
	for _, tt := range tests {
		t.Run(string(tt.at), func(t *testing.T) {
			out := w.Render(ReportInput{
				Type:      tt.at,
				Question:  "How is Apple doing?",
				Symbols:   []string{"AAPL"},
				Timeframe: domain.Timeframe1Y,
				Snapshots: []*domain.Snapshot{snap, nil},
				News:      news,
			})
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			assert.True(t, strings.HasSuffix(out, Disclaimer))
		})
	}
}

func TestWriter_Render_NoData(t *testing.T) {
	out := NewWriter().Render(ReportInput{Type: domain.AnalysisTechnical})
	assert.Contains(t, out, "Technical Recommendations")
	assert.True(t, strings.HasSuffix(out, Disclaimer))
}

func TestWriter_RenderPortfolio(t *testing.T) {
	a := snapshotFromCloses("AAPL", []float64{100, 101, 103, 102, 105}, domain.CompanyInfo{MarketCap: 3e12, Sector: "Technology"})
	b := snapshotFromCloses("JNJ", []float64{150, 151, 150, 152, 153}, domain.CompanyInfo{MarketCap: 4e11, Sector: "Healthcare"})
	stats := PortfolioStats([]*domain.Snapshot{a, b}, []float64{0.7, 0.3})

	out := NewWriter().RenderPortfolio(domain.RiskConservative, stats)
	assert.Contains(t, out, "# Portfolio Analysis - Conservative Risk Profile")
	assert.Contains(t, out, "- **Weight**: 70.0%")
	assert.Contains(t, out, "**Sharpe Ratio**")
	assert.Contains(t, out, "- **Healthcare**: 30.0%")
	assert.Contains(t, out, "Add 20-30% in bonds or bond ETFs")
	assert.True(t, strings.HasSuffix(out, PortfolioDisclaimer))

	empty := NewWriter().RenderPortfolio("", Portfolio{})
	assert.Contains(t, empty, "Moderate Risk Profile")
}

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "0", FormatVolume(0))
	assert.Equal(t, "999", FormatVolume(999))
	assert.Equal(t, "1,000", FormatVolume(1000))
	assert.Equal(t, "12,345,678", FormatVolume(12345678))
}
