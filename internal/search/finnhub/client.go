package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

const Name = "finnhub"

type Config struct {
	APIKey   string
	BaseURL  string // пусто - https://finnhub.io/api/v1
	Lookback time.Duration
	Timeout  time.Duration
}

// Client - новости компаний по тикерам, без тикеров - общая лента рынка
type Client struct {
	api      *finnhub.DefaultApiService
	lookback time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Lookback == 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	fc := finnhub.NewConfiguration()
	fc.AddDefaultHeader("X-Finnhub-Token", cfg.APIKey)
	fc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.BaseURL != "" {
		fc.Servers = finnhub.ServerConfigurations{{URL: cfg.BaseURL}}
	}

	return &Client{
		api:      finnhub.NewAPIClient(fc).DefaultApi,
		lookback: cfg.Lookback,
		now:      time.Now,
		logger:   logger,
	}
}

type article struct {
	headline string
	summary  string
	url      string
	source   string
	symbol   string
	ts       int64
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	req = req.WithDefaults()
	start := time.Now()

	var (
		articles []article
		err      error
	)
	if len(req.Symbols) > 0 {
		articles, err = c.companyNews(ctx, req.Symbols, req.MaxResults, search.Lookback(req.TimeRange, c.lookback))
	} else {
		articles, err = c.marketNews(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, search.ErrEmptyResults
	}

	sort.SliceStable(articles, func(i, j int) bool { return articles[i].ts > articles[j].ts })
	if len(articles) > req.MaxResults {
		articles = articles[:req.MaxResults]
	}

	results := make([]search.SearchResult, 0, len(articles))
	for i, a := range articles {
		content := a.summary
		if a.source != "" {
			content = fmt.Sprintf("%s (%s)", a.summary, a.source)
		}
		results = append(results, search.SearchResult{
			Title:         a.headline,
			URL:           a.url,
			Content:       content,
			Score:         1 / float64(i+1),
			PublishedDate: time.Unix(a.ts, 0).UTC().Format(time.RFC3339),
			Provider:      Name,
			Symbol:        a.symbol,
		})
	}

	return &search.SearchResponse{
		Query:        req.Query,
		Results:      results,
		ResponseTime: time.Since(start).Seconds(),
	}, nil
}

// companyNews - по тикеру параллельно, ошибка одного тикера не валит остальные
func (c *Client) companyNews(ctx context.Context, symbols []string, perSymbol int, lookback time.Duration) ([]article, error) {
	to := c.now().UTC()
	from := to.Add(-lookback)

	batches := make([][]article, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			res, httpResp, err := c.api.CompanyNews(gctx).
				Symbol(sym).
				From(from.Format("2006-01-02")).
				To(to.Format("2006-01-02")).
				Execute()
			if err != nil {
				errs[i] = mapError(httpResp, err)
				c.logger.Warn("finnhub company news failed", zap.String("symbol", sym), zap.Error(errs[i]))
				return nil
			}
			for _, n := range res {
				if n.GetUrl() == "" || n.GetHeadline() == "" {
					continue
				}
				batches[i] = append(batches[i], article{
					headline: n.GetHeadline(),
					summary:  n.GetSummary(),
					url:      n.GetUrl(),
					source:   n.GetSource(),
					symbol:   sym,
					ts:       n.GetDatetime(),
				})
				if len(batches[i]) >= perSymbol {
					break
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []article
	for _, b := range batches {
		out = append(out, b...)
	}
	if len(out) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (c *Client) marketNews(ctx context.Context) ([]article, error) {
	res, httpResp, err := c.api.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mapError(httpResp, err)
	}

	out := make([]article, 0, len(res))
	for _, n := range res {
		if n.GetUrl() == "" || n.GetHeadline() == "" {
			continue
		}
		out = append(out, article{
			headline: n.GetHeadline(),
			summary:  n.GetSummary(),
			url:      n.GetUrl(),
			source:   n.GetSource(),
			ts:       n.GetDatetime(),
		})
	}
	return out, nil
}

func mapError(resp *http.Response, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if resp == nil {
		return fmt.Errorf("%w: %v", search.ErrSearchFailed, err)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return search.ErrUnauthorized
	case http.StatusTooManyRequests:
		return search.ErrRateLimit
	default:
		return fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
	}
}

var _ search.SearchClient = (*Client)(nil)
