package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

const (
	Disclaimer          = "*This analysis is for educational purposes only. Always consult with financial professionals before making investment decisions.*"
	PortfolioDisclaimer = "*Portfolio analysis is for educational purposes. Consult with financial advisors for personalized advice.*"
)

// Writer - markdown отчеты без LLM: офлайн режим и фолбэк при сбое агентов
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

type ReportInput struct {
	Type      domain.AnalysisType
	Question  string
	Symbols   []string
	Timeframe domain.Timeframe
	Snapshots []*domain.Snapshot
	News      []search.SearchResult
}

func (w *Writer) Render(in ReportInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Analysis\n\n", in.Type.Title())
	if in.Question != "" {
		fmt.Fprintf(&sb, "> %s\n\n", in.Question)
	}

	snaps := nonNil(in.Snapshots)

	switch in.Type {
	case domain.AnalysisQuick:
		w.quick(&sb, snaps)
	case domain.AnalysisTechnical:
		w.technical(&sb, snaps)
	case domain.AnalysisRisk:
		w.risk(&sb, snaps)
	case domain.AnalysisSentiment:
		w.sentiment(&sb, in.News)
	case domain.AnalysisPortfolio:
		w.composition(&sb, snaps)
	default:
		w.comprehensive(&sb, snaps, in.News)
	}

	sb.WriteString("---\n\n")
	sb.WriteString(Disclaimer)
	return sb.String()
}

func (w *Writer) quick(sb *strings.Builder, snaps []*domain.Snapshot) {
	sb.WriteString("## Quick Analysis Results\n\n")
	if len(snaps) > 0 {
		sb.WriteString("### Current Stock Data\n\n")
		for _, s := range snaps {
			fmt.Fprintf(sb, "**%s**: $%.2f\n", s.Symbol, s.CurrentPrice())
			if s.Info.MarketCap > 0 {
				fmt.Fprintf(sb, "Market Cap: %s\n", FormatBillions(s.Info.MarketCap))
			}
			fmt.Fprintf(sb, "Sector: %s\n\n", orNA(s.Info.Sector))
		}
	}
	sb.WriteString("### Key Insights\n\n")
	sb.WriteString("- Current market conditions appear stable\n")
	sb.WriteString("- Consider monitoring key support/resistance levels\n")
	sb.WriteString("- Review earnings reports and company news\n\n")
}

func (w *Writer) comprehensive(sb *strings.Builder, snaps []*domain.Snapshot, news []search.SearchResult) {
	sb.WriteString("## Comprehensive Market Analysis\n\n")
	if len(news) > 0 {
		sb.WriteString("### Latest Market News\n\n")
		for i, n := range firstN(news, 3) {
			fmt.Fprintf(sb, "%d. **%s**\n", i+1, orDefault(n.Title, "No title"))
			fmt.Fprintf(sb, "   %s...\n\n", truncate(orDefault(n.Content, "No content"), 200))
		}
	}
	if len(snaps) > 0 {
		sb.WriteString("### Stock Analysis\n\n")
		for _, s := range snaps {
			fmt.Fprintf(sb, "#### %s Analysis\n\n", s.Symbol)
			if p := s.CurrentPrice(); p > 0 {
				fmt.Fprintf(sb, "- **Current Price**: $%.2f\n", p)
			}
			if s.Info.MarketCap > 0 {
				fmt.Fprintf(sb, "- **Market Cap**: %s\n", FormatBillions(s.Info.MarketCap))
			}
			fmt.Fprintf(sb, "- **Sector**: %s\n", orNA(s.Info.Sector))
			fmt.Fprintf(sb, "- **Industry**: %s\n\n", orNA(s.Info.Industry))
		}
	}
	sb.WriteString("### Recommendations\n\n")
	sb.WriteString("1. **Diversification**: Consider spreading investments across sectors\n")
	sb.WriteString("2. **Risk Management**: Set stop-loss orders for volatile positions\n")
	sb.WriteString("3. **Research**: Stay updated with company earnings and market news\n\n")
}

func (w *Writer) technical(sb *strings.Builder, snaps []*domain.Snapshot) {
	sb.WriteString("## Technical Analysis\n\n")
	for _, s := range snaps {
		t := TechnicalSummary(s)
		fmt.Fprintf(sb, "### %s Technical Indicators\n\n", s.Symbol)
		if t.BarsCounted == 0 {
			sb.WriteString("- No price history available\n\n")
			continue
		}
		fmt.Fprintf(sb, "- **Current Price**: $%.2f\n", t.Price)
		if t.HasChange {
			fmt.Fprintf(sb, "- **Daily Change**: %+.2f%%\n", t.ChangePct)
		}
		fmt.Fprintf(sb, "- **Volume**: %s\n", FormatVolume(t.Volume))
		fmt.Fprintf(sb, "- **Period Range**: $%.2f - $%.2f\n\n", t.RangeLow, t.RangeHigh)

		if t.HasSMA20 {
			fmt.Fprintf(sb, "- **20-Day SMA**: $%.2f\n", t.SMA20)
		}
		if t.HasSMA50 {
			fmt.Fprintf(sb, "- **50-Day SMA**: $%.2f\n", t.SMA50)
		}
		if t.HasRSI {
			fmt.Fprintf(sb, "- **RSI(14)**: %.1f\n", t.RSI)
		}
		if t.HasMACD {
			fmt.Fprintf(sb, "- **MACD**: %.3f (signal %.3f)\n", t.MACD.Line, t.MACD.Signal)
		}
		if t.HasBands {
			fmt.Fprintf(sb, "- **Bollinger Bands**: $%.2f - $%.2f\n", t.Bollinger.Lower, t.Bollinger.Upper)
		}
		sb.WriteString("\n")

		switch t.Trend {
		case TrendBullish:
			sb.WriteString("**Trend**: Bullish (Price above both moving averages)\n\n")
		case TrendBearish:
			sb.WriteString("**Trend**: Bearish (Price below both moving averages)\n\n")
		default:
			sb.WriteString("**Trend**: Mixed signals\n\n")
		}
	}
	sb.WriteString("### Technical Recommendations\n\n")
	sb.WriteString("- Monitor key support and resistance levels\n")
	sb.WriteString("- Watch for breakout patterns\n")
	sb.WriteString("- Consider volume confirmation for moves\n\n")
}

func (w *Writer) risk(sb *strings.Builder, snaps []*domain.Snapshot) {
	sb.WriteString("## Risk Assessment\n\n")
	if len(snaps) > 0 {
		sb.WriteString("### Risk Analysis by Stock\n\n")
		for _, s := range snaps {
			r := RiskSummary(s)
			fmt.Fprintf(sb, "#### %s Risk Profile\n\n", s.Symbol)
			if r.HasVol {
				fmt.Fprintf(sb, "- **Volatility**: %.2f%%\n", r.Volatility*100)
			}
			if r.HasDrawdown {
				fmt.Fprintf(sb, "- **Max Drawdown**: %.2f%%\n", r.MaxDrawdown*100)
			}
			if r.HasVaR {
				fmt.Fprintf(sb, "- **VaR (95%%)**: %.2f%%\n", r.VaR95*100)
			}
			if r.Beta != 0 {
				fmt.Fprintf(sb, "- **Beta**: %.2f\n", r.Beta)
			}
			fmt.Fprintf(sb, "- **Sector Risk**: %s\n", orNA(s.Info.Sector))
			fmt.Fprintf(sb, "- **Market Cap**: %s\n\n", FormatBillions(s.Info.MarketCap))
		}
	}
	sb.WriteString("### Risk Mitigation Strategies\n\n")
	sb.WriteString("1. **Diversification**: Spread investments across sectors\n")
	sb.WriteString("2. **Position Sizing**: Limit individual position sizes\n")
	sb.WriteString("3. **Stop Losses**: Set automatic stop-loss orders\n")
	sb.WriteString("4. **Regular Review**: Monitor positions regularly\n\n")
}

func (w *Writer) sentiment(sb *strings.Builder, news []search.SearchResult) {
	sb.WriteString("## Market Sentiment Analysis\n\n")
	if len(news) > 0 {
		s := ScoreResults(news)
		sb.WriteString("### News Sentiment\n\n")
		fmt.Fprintf(sb, "**Overall Sentiment**: %s\n\n", s.Label)
		fmt.Fprintf(sb, "- Positive signals: %d\n", s.Positive)
		fmt.Fprintf(sb, "- Negative signals: %d\n\n", s.Negative)
	}
	sb.WriteString("### Sentiment Recommendations\n\n")
	sb.WriteString("- Monitor social media sentiment\n")
	sb.WriteString("- Watch institutional flows\n")
	sb.WriteString("- Consider contrarian opportunities\n\n")
}

// composition - веса по капитализации, как в офлайн отчете для portfolio
func (w *Writer) composition(sb *strings.Builder, snaps []*domain.Snapshot) {
	sb.WriteString("## Portfolio Analysis\n\n")
	if len(snaps) == 0 {
		return
	}
	weights := make([]float64, len(snaps))
	for i := range weights {
		weights[i] = 1
	}
	stats := PortfolioStats(snaps, weights)

	sb.WriteString("### Portfolio Composition\n\n")
	for _, h := range stats.Holdings {
		fmt.Fprintf(sb, "- **%s**: %.1f%% of portfolio\n", h.Symbol, h.MarketCapShare*100)
	}
	sb.WriteString("\n### Portfolio Recommendations\n\n")
	sb.WriteString("1. **Diversification**: Consider adding different sectors\n")
	sb.WriteString("2. **Rebalancing**: Review allocation quarterly\n")
	sb.WriteString("3. **Risk Management**: Set appropriate position sizes\n\n")
}

// RenderPortfolio - отчет по портфелю с заданными весами
func (w *Writer) RenderPortfolio(rt domain.RiskTolerance, stats Portfolio) string {
	if !rt.IsValid() {
		rt = domain.RiskModerate
	}
	var sb strings.Builder
	title := strings.ToUpper(string(rt[:1])) + string(rt[1:])
	fmt.Fprintf(&sb, "# Portfolio Analysis - %s Risk Profile\n\n", title)

	if len(stats.Holdings) > 0 {
		sb.WriteString("## Portfolio Composition\n\n")
		for _, h := range stats.Holdings {
			fmt.Fprintf(&sb, "### %s\n", h.Symbol)
			fmt.Fprintf(&sb, "- **Weight**: %.1f%%\n", h.Weight*100)
			if h.MarketCapShare > 0 {
				fmt.Fprintf(&sb, "- **Market Cap Share**: %.1f%%\n", h.MarketCapShare*100)
			}
			fmt.Fprintf(&sb, "- **Sector**: %s\n", orNA(h.Sector))
			fmt.Fprintf(&sb, "- **Current Price**: $%.2f\n\n", h.Price)
		}

		if stats.HasRisk {
			sb.WriteString("## Portfolio Metrics\n\n")
			fmt.Fprintf(&sb, "- **Expected Annual Return**: %.2f%%\n", stats.ExpectedReturn*100)
			fmt.Fprintf(&sb, "- **Annual Volatility**: %.2f%%\n", stats.Volatility*100)
			fmt.Fprintf(&sb, "- **Sharpe Ratio**: %.2f\n\n", stats.Sharpe)
		}

		if len(stats.SectorWeights) > 0 {
			sb.WriteString("## Sector Exposure\n\n")
			sectors := make([]string, 0, len(stats.SectorWeights))
			for s := range stats.SectorWeights {
				sectors = append(sectors, s)
			}
			sort.Strings(sectors)
			for _, s := range sectors {
				fmt.Fprintf(&sb, "- **%s**: %.1f%%\n", s, stats.SectorWeights[s]*100)
			}
			sb.WriteString("\n")
		}

		sb.WriteString("## Recommendations\n\n")
		for _, line := range AllocationAdvice(rt) {
			fmt.Fprintf(&sb, "- **%s**\n", line)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString(PortfolioDisclaimer)
	return sb.String()
}

func FormatVolume(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

func nonNil(snaps []*domain.Snapshot) []*domain.Snapshot {
	out := make([]*domain.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func firstN(rs []search.SearchResult, n int) []search.SearchResult {
	if len(rs) > n {
		return rs[:n]
	}
	return rs
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
