package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

const Name = "duckduckgo"

const maxBodyBytes = 2 << 20

type Config struct {
	BaseURL    string
	Region     string // kl, например us-en
	SafeSearch string // kp: 1 строгий, -1 выключен, -2 умеренный
	UserAgent  string
	Timeout    time.Duration
	Backoff    []time.Duration
}

// Client - поиск через html-версию DuckDuckGo, ключ не нужен
type Client struct {
	baseURL    string
	region     string
	safeSearch string
	userAgent  string
	backoff    []time.Duration
	client     *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com"
	}
	if cfg.Region == "" {
		cfg.Region = "us-en"
	}
	if cfg.SafeSearch == "" {
		cfg.SafeSearch = "-2"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = []time.Duration{1 * time.Second, 3 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		region:     cfg.Region,
		safeSearch: cfg.SafeSearch,
		userAgent:  cfg.UserAgent,
		backoff:    cfg.Backoff,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	req = req.WithDefaults()
	query := req.Query
	if query == "" {
		return nil, search.ErrInvalidRequest
	}
	if req.Topic == search.TopicNews && !strings.Contains(strings.ToLower(query), "news") {
		query += " news"
	}
	for _, d := range req.IncludeDomains {
		query += " site:" + d
	}
	for _, d := range req.ExcludeDomains {
		query += " -site:" + d
	}

	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", c.region)
	form.Set("kp", c.safeSearch)
	if df := timeFilter(req.TimeRange); df != "" {
		form.Set("df", df)
	}
	body := form.Encode()

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/html/", strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header.Set("User-Agent", c.userAgent)
		httpReq.Header.Set("Accept", "text/html")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			results, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes), req.MaxResults)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: parse html: %v", search.ErrSearchFailed, err)
			}
			if len(results) == 0 {
				return nil, search.ErrEmptyResults
			}
			return &search.SearchResponse{
				Query:        req.Query,
				Results:      results,
				ResponseTime: time.Since(start).Seconds(),
			}, nil

		// 202 и 429 - антибот DuckDuckGo
		case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusTooManyRequests:
			drain(resp.Body)
			return nil, search.ErrRateLimit

		case resp.StatusCode >= 500:
			drain(resp.Body)
			c.logger.Debug("duckduckgo server error, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue

		default:
			drain(resp.Body)
			return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrSearchFailed, lastErr)
	}
	return nil, search.ErrSearchFailed
}

func parseResults(r io.Reader, limit int) ([]search.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var results []search.SearchResult
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapURL(href)
		if target == "" {
			return true
		}

		results = append(results, search.SearchResult{
			Title:    strings.TrimSpace(link.Text()),
			URL:      target,
			Content:  strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Score:    1 / float64(len(results)+1),
			Provider: Name,
		})
		return len(results) < limit
	})

	return results, nil
}

// unwrapURL - ссылки в выдаче идут через редирект //duckduckgo.com/l/?uddg=<url>
func unwrapURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		t, err := url.Parse(target)
		if err != nil || !isWebURL(t) {
			return ""
		}
		return target
	}
	if !isWebURL(u) || strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		return ""
	}
	return u.String()
}

// в отчет и в телеграм попадают только http(s) ссылки
func isWebURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func timeFilter(r string) string {
	switch r {
	case "day", "d":
		return "d"
	case "week", "w":
		return "w"
	case "month", "m":
		return "m"
	case "year", "y":
		return "y"
	}
	return ""
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	body.Close()
}

var _ search.SearchClient = (*Client)(nil)
