package domain

import "time"

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type Quote struct {
	Symbol        string
	Price         float64
	PreviousClose float64
	Currency      string
	Exchange      string
	MarketTime    time.Time
}

// ChangePercent - изменение к предыдущему закрытию
func (q Quote) ChangePercent() (float64, bool) {
	if q.PreviousClose == 0 {
		return 0, false
	}
	return (q.Price - q.PreviousClose) / q.PreviousClose * 100, true
}

// CompanyInfo - все поля опциональны, Yahoo отдает их не для всех тикеров
type CompanyInfo struct {
	Name              string
	Sector            string
	Industry          string
	MarketCap         float64
	TrailingPE        float64
	ForwardPE         float64
	PriceToBook       float64
	ReturnOnEquity    float64
	DebtToEquity      float64
	DividendYield     float64
	Beta              float64
	FiftyTwoWeekHigh  float64
	FiftyTwoWeekLow   float64
	RecommendationKey string
	TargetMeanPrice   float64
	AnalystCount      int
}

type Snapshot struct {
	Symbol    string
	Timeframe Timeframe
	Quote     Quote
	Info      CompanyInfo
	Bars      []Bar
	FetchedAt time.Time
}

func (s *Snapshot) Closes() []float64 {
	out := make([]float64, 0, len(s.Bars))
	for _, b := range s.Bars {
		if b.Close > 0 {
			out = append(out, b.Close)
		}
	}
	return out
}

// CurrentPrice - котировка, если ее нет - последнее закрытие
func (s *Snapshot) CurrentPrice() float64 {
	if s.Quote.Price > 0 {
		return s.Quote.Price
	}
	closes := s.Closes()
	if len(closes) == 0 {
		return 0
	}
	return closes[len(closes)-1]
}
