package yahoo

import (
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		ExchangeName       string  `json:"exchangeName"`
		FullExchangeName   string  `json:"fullExchangeName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		PreviousClose      float64 `json:"previousClose"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (r *chartResult) quote(symbol string) domain.Quote {
	exchange := r.Meta.FullExchangeName
	if exchange == "" {
		exchange = r.Meta.ExchangeName
	}
	prev := r.Meta.PreviousClose
	if prev == 0 {
		prev = r.Meta.ChartPreviousClose
	}

	q := domain.Quote{
		Symbol:        symbol,
		Price:         r.Meta.RegularMarketPrice,
		PreviousClose: prev,
		Currency:      r.Meta.Currency,
		Exchange:      exchange,
	}
	if r.Meta.RegularMarketTime > 0 {
		q.MarketTime = time.Unix(r.Meta.RegularMarketTime, 0).UTC()
	}
	return q
}

// bars пропускает точки без close, Yahoo отдает null в незакрытых интервалах
func (r *chartResult) bars() []domain.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	out := make([]domain.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c <= 0 {
			continue
		}
		out = append(out, domain.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  c,
			Volume: at(q.Volume, i),
		})
	}
	return out
}

func at(xs []*float64, i int) float64 {
	if i >= len(xs) || xs[i] == nil {
		return 0
	}
	return *xs[i]
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type summaryResult struct {
	Price struct {
		LongName  string   `json:"longName"`
		ShortName string   `json:"shortName"`
		MarketCap rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryProfile struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"summaryProfile"`
	SummaryDetail struct {
		TrailingPE       rawValue `json:"trailingPE"`
		ForwardPE        rawValue `json:"forwardPE"`
		DividendYield    rawValue `json:"dividendYield"`
		Beta             rawValue `json:"beta"`
		FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
		MarketCap        rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	FinancialData struct {
		RecommendationKey       string   `json:"recommendationKey"`
		TargetMeanPrice         rawValue `json:"targetMeanPrice"`
		NumberOfAnalystOpinions rawValue `json:"numberOfAnalystOpinions"`
		ReturnOnEquity          rawValue `json:"returnOnEquity"`
		DebtToEquity            rawValue `json:"debtToEquity"`
	} `json:"financialData"`
	DefaultKeyStatistics struct {
		PriceToBook rawValue `json:"priceToBook"`
		ForwardPE   rawValue `json:"forwardPE"`
	} `json:"defaultKeyStatistics"`
}

func (s *summaryResult) info() domain.CompanyInfo {
	name := s.Price.LongName
	if name == "" {
		name = s.Price.ShortName
	}
	marketCap := s.Price.MarketCap.Raw
	if marketCap == 0 {
		marketCap = s.SummaryDetail.MarketCap.Raw
	}
	forwardPE := s.SummaryDetail.ForwardPE.Raw
	if forwardPE == 0 {
		forwardPE = s.DefaultKeyStatistics.ForwardPE.Raw
	}

	return domain.CompanyInfo{
		Name:              name,
		Sector:            s.SummaryProfile.Sector,
		Industry:          s.SummaryProfile.Industry,
		MarketCap:         marketCap,
		TrailingPE:        s.SummaryDetail.TrailingPE.Raw,
		ForwardPE:         forwardPE,
		PriceToBook:       s.DefaultKeyStatistics.PriceToBook.Raw,
		ReturnOnEquity:    s.FinancialData.ReturnOnEquity.Raw,
		DebtToEquity:      s.FinancialData.DebtToEquity.Raw,
		DividendYield:     s.SummaryDetail.DividendYield.Raw,
		Beta:              s.SummaryDetail.Beta.Raw,
		FiftyTwoWeekHigh:  s.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWeekLow:   s.SummaryDetail.FiftyTwoWeekLow.Raw,
		RecommendationKey: s.FinancialData.RecommendationKey,
		TargetMeanPrice:   s.FinancialData.TargetMeanPrice.Raw,
		AnalystCount:      int(s.FinancialData.NumberOfAnalystOpinions.Raw),
	}
}
