// Package analysis - детерминированные расчеты по котировкам: индикаторы,
// риск-метрики, тональность новостей и офлайн-отчеты.
package analysis

import (
	"math"
	"sort"
)

// SMA - среднее последних n значений
func SMA(xs []float64, n int) (float64, bool) {
	if n <= 0 || len(xs) < n {
		return 0, false
	}
	var sum float64
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n), true
}

// EMASeries - EMA для каждой точки начиная с n-1, затравка через SMA первых n
func EMASeries(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) < n {
		return nil
	}
	k := 2 / float64(n+1)

	out := make([]float64, 0, len(xs)-n+1)
	seed, _ := SMA(xs[:n], n)
	out = append(out, seed)
	prev := seed
	for _, x := range xs[n:] {
		prev = x*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

func EMA(xs []float64, n int) (float64, bool) {
	s := EMASeries(xs, n)
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// RSI по Уайлдеру
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD 12/26/9
func MACD(closes []float64) (MACDResult, bool) {
	const fast, slow, signal = 12, 26, 9

	if len(closes) < slow+signal-1 {
		return MACDResult{}, false
	}

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	// выравниваем по концу: fastEMA длиннее на slow-fast точек
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig, ok := EMA(line, signal)
	if !ok {
		return MACDResult{}, false
	}
	last := line[len(line)-1]
	return MACDResult{Line: last, Signal: sig, Histogram: last - sig}, true
}

type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

func BollingerBands(closes []float64, n int, k float64) (Bands, bool) {
	mid, ok := SMA(closes, n)
	if !ok {
		return Bands{}, false
	}
	var sq float64
	for _, x := range closes[len(closes)-n:] {
		sq += (x - mid) * (x - mid)
	}
	sd := math.Sqrt(sq / float64(n))
	return Bands{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}, true
}

// Returns - простые доходности, нулевые цены пропускаются
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev - выборочное стандартное отклонение
func StdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)-1)), true
}

func AnnualizedVolatility(returns []float64, periodsPerYear float64) (float64, bool) {
	sd, ok := StdDev(returns)
	if !ok {
		return 0, false
	}
	return sd * math.Sqrt(periodsPerYear), true
}

// MaxDrawdown - максимальная просадка от пика, положительное число (0.25 = -25%)
func MaxDrawdown(closes []float64) (float64, bool) {
	if len(closes) < 2 {
		return 0, false
	}
	peak := closes[0]
	var dd float64
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if d := (peak - c) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd, true
}

// HistoricalVaR - потеря, которую не превышаем с вероятностью confidence.
// Возвращается положительным числом.
func HistoricalVaR(returns []float64, confidence float64) (float64, bool) {
	if len(returns) < 2 || confidence <= 0 || confidence >= 1 {
		return 0, false
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := -sorted[idx]
	if v < 0 {
		v = 0
	}
	return v, true
}

// SharpeRatio - riskFree годовая ставка
func SharpeRatio(returns []float64, riskFree, periodsPerYear float64) (float64, bool) {
	vol, ok := AnnualizedVolatility(returns, periodsPerYear)
	if !ok || vol == 0 {
		return 0, false
	}
	annual := mean(returns) * periodsPerYear
	return (annual - riskFree) / vol, true
}

// Correlation - Пирсон по общему хвосту рядов
func Correlation(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0, false
	}
	a, b = a[len(a)-n:], b[len(b)-n:]

	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0, false
	}
	return cov / math.Sqrt(va*vb), true
}

type TrendSignal string

const (
	TrendBullish TrendSignal = "Bullish"
	TrendBearish TrendSignal = "Bearish"
	TrendMixed   TrendSignal = "Mixed"
)

func Trend(price, sma20, sma50 float64) TrendSignal {
	switch {
	case price > sma20 && sma20 > sma50:
		return TrendBullish
	case price < sma20 && sma20 < sma50:
		return TrendBearish
	default:
		return TrendMixed
	}
}
