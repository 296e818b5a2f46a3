package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/market"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (compatible; finanalyst/2.0)"
	summaryModules = "price,summaryProfile,summaryDetail,financialData,defaultKeyStatistics"
	maxBodyBytes   = 4 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Backoff []time.Duration
	// SkipInfo - не ходить в quoteSummary, только котировки
	SkipInfo bool
}

type Client struct {
	baseURL  string
	backoff  []time.Duration
	skipInfo bool
	client   *http.Client
	now      func() time.Time
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		backoff:  cfg.Backoff,
		skipInfo: cfg.SkipInfo,
		client:   &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
		logger:   logger,
	}
}

func (c *Client) Snapshot(ctx context.Context, symbol string, tf domain.Timeframe) (*domain.Snapshot, error) {
	if !tf.IsValid() {
		tf = domain.DefaultTimeframe
	}

	q := url.Values{}
	q.Set("range", tf.String())
	q.Set("interval", tf.Interval())
	q.Set("includePrePost", "false")

	var chart chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol)+"?"+q.Encode(), &chart); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil || len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, market.ErrSymbolNotFound)
	}

	r := chart.Chart.Result[0]
	snap := &domain.Snapshot{
		Symbol:    symbol,
		Timeframe: tf,
		Quote:     r.quote(symbol),
		Bars:      r.bars(),
		FetchedAt: c.now().UTC(),
	}
	if snap.Quote.Price == 0 && len(snap.Bars) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, market.ErrSymbolNotFound)
	}
	snap.Info.Name = r.Meta.LongName
	if snap.Info.Name == "" {
		snap.Info.Name = r.Meta.ShortName
	}
	snap.Info.FiftyTwoWeekHigh = r.Meta.FiftyTwoWeekHigh
	snap.Info.FiftyTwoWeekLow = r.Meta.FiftyTwoWeekLow

	if !c.skipInfo {
		// фундаментал необязателен, без него отчет все равно строится
		info, err := c.companyInfo(ctx, symbol)
		if err != nil {
			c.logger.Debug("quote summary unavailable", zap.String("symbol", symbol), zap.Error(err))
		} else {
			mergeInfo(&snap.Info, info)
		}
	}

	return snap, nil
}

func (c *Client) companyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error) {
	var resp summaryResponse
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?modules=" + summaryModules
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return domain.CompanyInfo{}, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return domain.CompanyInfo{}, market.ErrSymbolNotFound
	}
	return resp.QuoteSummary.Result[0].info(), nil
}

// getJSON - GET с повторами на 5xx и сетевые ошибки
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	var lastErr error

	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, dst); err != nil {
				return fmt.Errorf("%w: unmarshal: %v", market.ErrRequestFailed, err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return market.ErrSymbolNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return market.ErrRateLimit
		case resp.StatusCode >= 500:
			c.logger.Debug("yahoo server error, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("%w: status %d", market.ErrRequestFailed, resp.StatusCode)
		}
	}

	return fmt.Errorf("%w: %v", market.ErrRequestFailed, lastErr)
}

func mergeInfo(dst *domain.CompanyInfo, src domain.CompanyInfo) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.FiftyTwoWeekHigh > 0 {
		dst.FiftyTwoWeekHigh = src.FiftyTwoWeekHigh
	}
	if src.FiftyTwoWeekLow > 0 {
		dst.FiftyTwoWeekLow = src.FiftyTwoWeekLow
	}
	dst.Sector = src.Sector
	dst.Industry = src.Industry
	dst.MarketCap = src.MarketCap
	dst.TrailingPE = src.TrailingPE
	dst.ForwardPE = src.ForwardPE
	dst.PriceToBook = src.PriceToBook
	dst.ReturnOnEquity = src.ReturnOnEquity
	dst.DebtToEquity = src.DebtToEquity
	dst.DividendYield = src.DividendYield
	dst.Beta = src.Beta
	dst.RecommendationKey = src.RecommendationKey
	dst.TargetMeanPrice = src.TargetMeanPrice
	dst.AnalystCount = src.AnalystCount
}

var _ market.Provider = (*Client)(nil)
