package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

const Name = "tavily"

const (
	defaultBaseURL = "https://api.tavily.com"
	maxBodyBytes   = 2 << 20

	// лимиты тарифа tavily, отдаются отдельными кодами
	statusPlanLimit  = 432
	statusUsageLimit = 433
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Backoff []time.Duration // паузы между повторами при 5xx
}

// Client - поиск по вебу и новостям через Tavily Search API
type Client struct {
	apiKey   string
	endpoint string
	backoff  []time.Duration
	client   *http.Client
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/search",
		backoff:  cfg.Backoff,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

type searchBody struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	TimeRange      string   `json:"time_range,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchReply struct {
	Query        string      `json:"query"`
	Results      []replyItem `json:"results"`
	ResponseTime float64     `json:"response_time"`
}

type replyItem struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// errRetry - ответ, после которого есть смысл повторить запрос
type errRetry struct{ err error }

func (e errRetry) Error() string { return e.err.Error() }
func (e errRetry) Unwrap() error { return e.err }

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	req = req.WithDefaults()
	if req.Query == "" {
		return nil, search.ErrInvalidRequest
	}

	body := searchBody{
		Query:          req.Query,
		Topic:          req.Topic,
		SearchDepth:    req.SearchDepth,
		TimeRange:      req.TimeRange,
		MaxResults:     req.MaxResults,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	}
	if body.SearchDepth == "" {
		body.SearchDepth = "basic"
	}
	// у tavily есть отдельный финансовый индекс
	if body.Topic == search.TopicGeneral {
		body.Topic = "finance"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		reply, err := c.attempt(ctx, payload)
		if err == nil {
			return c.convert(reply), nil
		}
		var retry errRetry
		if !errors.As(err, &retry) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("tavily attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		lastErr = retry.err
	}

	return nil, fmt.Errorf("%w: %v", search.ErrSearchFailed, lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte) (*searchReply, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errRetry{fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errRetry{fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, search.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == statusPlanLimit,
		resp.StatusCode == statusUsageLimit:
		return nil, fmt.Errorf("%w: %s", search.ErrRateLimit, errorDetail(raw))
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", search.ErrInvalidRequest, errorDetail(raw))
	case resp.StatusCode >= 500:
		return nil, errRetry{fmt.Errorf("server error: %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
	}

	var reply searchReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(reply.Results) == 0 {
		return nil, search.ErrEmptyResults
	}
	return &reply, nil
}

// errorDetail - текст ошибки из {"detail": {"error": "..."}}
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Detail) == 0 {
		return "no details"
	}
	var nested struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body.Detail, &nested) == nil && nested.Error != "" {
		return nested.Error
	}
	var text string
	if json.Unmarshal(body.Detail, &text) == nil && text != "" {
		return text
	}
	return string(body.Detail)
}

func (c *Client) convert(reply *searchReply) *search.SearchResponse {
	results := make([]search.SearchResult, 0, len(reply.Results))
	for _, r := range reply.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, search.SearchResult{
			Title:         strings.TrimSpace(r.Title),
			URL:           r.URL,
			Content:       strings.TrimSpace(r.Content),
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
			Provider:      Name,
		})
	}

	return &search.SearchResponse{
		Query:        reply.Query,
		Results:      results,
		ResponseTime: reply.ResponseTime,
	}
}
