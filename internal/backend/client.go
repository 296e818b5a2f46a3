package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/httpapi"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

const maxResponseBytes = 16 << 20

var (
	ErrBackendTimeout     = errors.New("backend request timed out")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Error - ответ бэкенда с кодом не 2xx
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
}

// Unwrap сводит код ответа к доменной ошибке, чтобы вызывающий мог проверять errors.Is
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrAlertNotFound
	case http.StatusConflict:
		return domain.ErrAlertExists
	case http.StatusServiceUnavailable:
		return domain.ErrLLMNotConfigured
	case http.StatusGatewayTimeout:
		return domain.ErrAnalysisTimeout
	case http.StatusBadGateway:
		return domain.ErrLLMFailed
	}
	return nil
}

type Config struct {
	BaseURL        string
	QueryTimeout   time.Duration // /query и /portfolio
	HealthTimeout  time.Duration
	DefaultTimeout time.Duration
}

type Client struct {
	baseURL string
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 300 * time.Second
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		client:  &http.Client{},
		logger:  logger,
	}
}

func (c *Client) Analyze(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	body := httpapi.QueryRequest{
		Question:     req.Question,
		AnalysisType: string(req.AnalysisType),
		Symbols:      req.Symbols,
		Timeframe:    string(req.Timeframe),
	}
	var out httpapi.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", body, &out, c.cfg.QueryTimeout); err != nil {
		return nil, err
	}
	return fromQueryResponse(out), nil
}

func (c *Client) AnalyzePortfolio(ctx context.Context, req domain.PortfolioRequest) (*domain.PortfolioResult, error) {
	body := httpapi.PortfolioRequest{
		Symbols:       req.Symbols,
		Weights:       req.Weights,
		RiskTolerance: string(req.RiskTolerance),
	}
	var out httpapi.PortfolioResponse
	if err := c.do(ctx, http.MethodPost, "/portfolio", body, &out, c.cfg.QueryTimeout); err != nil {
		return nil, err
	}
	return fromPortfolioResponse(out), nil
}

func (c *Client) History(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	path := "/history?limit=" + strconv.Itoa(limit)
	var out httpapi.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out, c.cfg.DefaultTimeout); err != nil {
		return nil, err
	}
	recs := make([]domain.QueryRecord, len(out.History))
	for i, r := range out.History {
		recs[i] = fromHistoryRecord(r)
	}
	return recs, nil
}

func (c *Client) Alerts(ctx context.Context) ([]domain.Alert, error) {
	var out httpapi.AlertsResponse
	if err := c.do(ctx, http.MethodGet, "/alerts", nil, &out, c.cfg.DefaultTimeout); err != nil {
		return nil, err
	}
	alerts := make([]domain.Alert, len(out.Alerts))
	for i, a := range out.Alerts {
		alerts[i] = fromAlertResponse(a)
	}
	return alerts, nil
}

func (c *Client) CreateAlert(ctx context.Context, symbol string, condition domain.AlertCondition, threshold float64) (*domain.Alert, error) {
	body := httpapi.CreateAlertRequest{
		Symbol:    symbol,
		Condition: string(condition),
		Threshold: threshold,
	}
	var out httpapi.CreateAlertResponse
	if err := c.do(ctx, http.MethodPost, "/alerts", body, &out, c.cfg.DefaultTimeout); err != nil {
		return nil, err
	}
	a := fromAlertResponse(out.Alert)
	return &a, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/alerts/"+url.PathEscape(id), nil, nil, c.cfg.DefaultTimeout)
}

func (c *Client) Health(ctx context.Context) (*service.Status, error) {
	var out httpapi.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out, c.cfg.HealthTimeout); err != nil {
		return nil, err
	}
	st := fromHealthResponse(out)
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classify(ctx, err)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var e httpapi.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Error == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Status: status, Message: msg}
	}
	return &Error{Status: status, Message: e.Error}
}

// classify разделяет таймаут, недоступность бэкенда и отмену вызывающим
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: connection refused", ErrBackendUnavailable)
	}
	// прочие сетевые ошибки (dns, reset) тоже считаем недоступностью
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
