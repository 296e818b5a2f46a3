package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrEmptyResults   = errors.New("no results found")
)

const (
	TopicGeneral = "general"
	TopicNews    = "news"
)

// окно свежести новостей, понимают tavily и duckduckgo
const (
	TimeRangeDay   = "day"
	TimeRangeWeek  = "week"
	TimeRangeMonth = "month"
	TimeRangeYear  = "year"
)

const DefaultMaxResults = 5

type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type SearchRequest struct {
	Query          string
	Symbols        []string // тикеры для новостных провайдеров
	IncludeDomains []string
	ExcludeDomains []string
	MaxResults     int
	SearchDepth    string
	TimeRange      string
	Topic          string
}

// WithDefaults - общая нормализация запроса перед походом к провайдеру
func (r SearchRequest) WithDefaults() SearchRequest {
	r.Query = strings.Join(strings.Fields(r.Query), " ")
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.Topic == "" {
		r.Topic = TopicGeneral
	}
	return r
}

// TimeRangeFor - насколько свежие новости нужны для графика данного периода
func TimeRangeFor(tf domain.Timeframe) string {
	switch tf {
	case domain.Timeframe1D, domain.Timeframe5D:
		return TimeRangeWeek
	case domain.Timeframe1M, domain.Timeframe3M:
		return TimeRangeMonth
	case "":
		return ""
	default:
		return TimeRangeYear
	}
}

// Lookback - глубина выборки для провайдеров, которые ищут по датам
func Lookback(timeRange string, fallback time.Duration) time.Duration {
	switch timeRange {
	case TimeRangeDay:
		return 24 * time.Hour
	case TimeRangeWeek:
		return 7 * 24 * time.Hour
	case TimeRangeMonth:
		return 30 * 24 * time.Hour
	case TimeRangeYear:
		return 365 * 24 * time.Hour
	}
	return fallback
}

type SearchResponse struct {
	Query        string
	Results      []SearchResult
	ResponseTime float64
}

type SearchResult struct {
	Title         string
	URL           string
	Content       string
	Score         float64
	PublishedDate string
	Provider      string
	Symbol        string // для новостей по конкретному тикеру
}
