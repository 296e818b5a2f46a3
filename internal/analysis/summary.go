package analysis

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

// Technical - сводка индикаторов по одному тикеру.
// Флаги Has* показывают, хватило ли истории на расчет.
type Technical struct {
	Symbol      string
	Price       float64
	ChangePct   float64
	HasChange   bool
	Volume      float64
	RangeLow    float64
	RangeHigh   float64
	SMA20       float64
	HasSMA20    bool
	SMA50       float64
	HasSMA50    bool
	RSI         float64
	HasRSI      bool
	MACD        MACDResult
	HasMACD     bool
	Bollinger   Bands
	HasBands    bool
	Trend       TrendSignal
	BarsCounted int
}

func TechnicalSummary(s *domain.Snapshot) Technical {
	closes := s.Closes()
	t := Technical{
		Symbol:      s.Symbol,
		Price:       s.CurrentPrice(),
		Trend:       TrendMixed,
		BarsCounted: len(closes),
	}

	if n := len(closes); n >= 2 && closes[n-2] != 0 {
		t.ChangePct = (closes[n-1] - closes[n-2]) / closes[n-2] * 100
		t.HasChange = true
	} else if pct, ok := s.Quote.ChangePercent(); ok {
		t.ChangePct, t.HasChange = pct, true
	}

	for i, b := range s.Bars {
		if i == len(s.Bars)-1 {
			t.Volume = b.Volume
		}
		if b.Low > 0 && (t.RangeLow == 0 || b.Low < t.RangeLow) {
			t.RangeLow = b.Low
		}
		if b.High > t.RangeHigh {
			t.RangeHigh = b.High
		}
	}

	t.SMA20, t.HasSMA20 = SMA(closes, 20)
	t.SMA50, t.HasSMA50 = SMA(closes, 50)
	t.RSI, t.HasRSI = RSI(closes, 14)
	t.MACD, t.HasMACD = MACD(closes)
	t.Bollinger, t.HasBands = BollingerBands(closes, 20, 2)

	if t.HasSMA20 && t.HasSMA50 {
		t.Trend = Trend(t.Price, t.SMA20, t.SMA50)
	}
	return t
}

type Risk struct {
	Symbol      string
	Volatility  float64
	HasVol      bool
	MaxDrawdown float64
	HasDrawdown bool
	VaR95       float64
	HasVaR      bool
	Sharpe      float64
	HasSharpe   bool
	Beta        float64
}

// RiskFreeRate - годовая безрисковая ставка для Шарпа
const RiskFreeRate = 0.04

func RiskSummary(s *domain.Snapshot) Risk {
	closes := s.Closes()
	rets := Returns(closes)
	ppy := s.Timeframe.PeriodsPerYear()
	if s.Timeframe == "" {
		ppy = 252
	}

	r := Risk{Symbol: s.Symbol, Beta: s.Info.Beta}
	r.Volatility, r.HasVol = AnnualizedVolatility(rets, ppy)
	r.MaxDrawdown, r.HasDrawdown = MaxDrawdown(closes)
	r.VaR95, r.HasVaR = HistoricalVaR(rets, 0.95)
	r.Sharpe, r.HasSharpe = SharpeRatio(rets, RiskFreeRate, ppy)
	return r
}

// Digest - компактная выжимка цифр для промпта агента,
// чтобы модель опиралась на посчитанные значения
func Digest(snapshots []*domain.Snapshot) string {
	if len(snapshots) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		t := TechnicalSummary(s)
		r := RiskSummary(s)

		fmt.Fprintf(&sb, "%s", s.Symbol)
		if s.Info.Name != "" {
			fmt.Fprintf(&sb, " (%s)", s.Info.Name)
		}
		sb.WriteString(":\n")
		fmt.Fprintf(&sb, "- price: %.2f %s\n", t.Price, s.Quote.Currency)
		if t.HasChange {
			fmt.Fprintf(&sb, "- last change: %+.2f%%\n", t.ChangePct)
		}
		if t.RangeHigh > 0 {
			fmt.Fprintf(&sb, "- range (%s): %.2f - %.2f\n", s.Timeframe, t.RangeLow, t.RangeHigh)
		}
		if s.Info.MarketCap > 0 {
			fmt.Fprintf(&sb, "- market cap: %s\n", FormatBillions(s.Info.MarketCap))
		}
		if s.Info.Sector != "" {
			fmt.Fprintf(&sb, "- sector: %s / %s\n", s.Info.Sector, s.Info.Industry)
		}
		if s.Info.TrailingPE > 0 {
			fmt.Fprintf(&sb, "- P/E: %.2f\n", s.Info.TrailingPE)
		}
		if t.HasSMA20 {
			fmt.Fprintf(&sb, "- SMA20: %.2f\n", t.SMA20)
		}
		if t.HasSMA50 {
			fmt.Fprintf(&sb, "- SMA50: %.2f\n", t.SMA50)
		}
		if t.HasRSI {
			fmt.Fprintf(&sb, "- RSI(14): %.1f\n", t.RSI)
		}
		if t.HasMACD {
			fmt.Fprintf(&sb, "- MACD: %.3f signal %.3f hist %.3f\n", t.MACD.Line, t.MACD.Signal, t.MACD.Histogram)
		}
		fmt.Fprintf(&sb, "- trend: %s\n", t.Trend)
		if r.HasVol {
			fmt.Fprintf(&sb, "- annualized volatility: %.2f%%\n", r.Volatility*100)
		}
		if r.HasDrawdown {
			fmt.Fprintf(&sb, "- max drawdown: %.2f%%\n", r.MaxDrawdown*100)
		}
		if r.HasVaR {
			fmt.Fprintf(&sb, "- VaR95 (per bar): %.2f%%\n", r.VaR95*100)
		}
		if r.Beta != 0 {
			fmt.Fprintf(&sb, "- beta: %.2f\n", r.Beta)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func FormatBillions(v float64) string {
	return fmt.Sprintf("$%.2fB", v/1e9)
}
