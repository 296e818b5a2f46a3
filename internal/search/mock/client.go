package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

const Name = "mock"

type fixture struct {
	contains string
	results  []search.SearchResult
}

// Client - поисковик для тестов: фиксированная выдача, выдача по подстроке запроса
// или произвольный responder, плюс журнал всех запросов
type Client struct {
	mu        sync.Mutex
	fallback  []search.SearchResult
	fixtures  []fixture
	err       error
	delay     time.Duration
	responder func(req search.SearchRequest) ([]search.SearchResult, error)
	requests  []search.SearchRequest
}

func New() *Client {
	return &Client{}
}

// WithResults - выдача для запросов, не попавших ни в одну фикстуру
func (c *Client) WithResults(results []search.SearchResult) *Client {
	c.mu.Lock()
	c.fallback = results
	c.mu.Unlock()
	return c
}

// On - выдача для запросов, содержащих substr (без учета регистра)
func (c *Client) On(substr string, results ...search.SearchResult) *Client {
	c.mu.Lock()
	c.fixtures = append(c.fixtures, fixture{contains: strings.ToLower(substr), results: results})
	c.mu.Unlock()
	return c
}

func (c *Client) WithError(err error) *Client {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	return c
}

func (c *Client) WithDelay(d time.Duration) *Client {
	c.mu.Lock()
	c.delay = d
	c.mu.Unlock()
	return c
}

func (c *Client) WithResponder(fn func(req search.SearchRequest) ([]search.SearchResult, error)) *Client {
	c.mu.Lock()
	c.responder = fn
	c.mu.Unlock()
	return c
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	delay, err, responder := c.delay, c.err, c.responder
	results := c.match(req.Query)
	c.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if responder != nil {
		results, err = responder(req)
	}
	if err != nil {
		return nil, err
	}

	out := make([]search.SearchResult, 0, len(results))
	for _, r := range results {
		if !forSymbols(r, req.Symbols) {
			continue
		}
		if r.Provider == "" {
			r.Provider = Name
		}
		out = append(out, r)
		if req.MaxResults > 0 && len(out) == req.MaxResults {
			break
		}
	}
	if len(out) == 0 {
		return nil, search.ErrEmptyResults
	}

	return &search.SearchResponse{Query: req.Query, Results: out, ResponseTime: 0.01}, nil
}

func (c *Client) match(query string) []search.SearchResult {
	q := strings.ToLower(query)
	for _, f := range c.fixtures {
		if strings.Contains(q, f.contains) {
			return f.results
		}
	}
	return c.fallback
}

// результат без Symbol подходит под любой запрос
func forSymbols(r search.SearchResult, symbols []string) bool {
	if len(symbols) == 0 || r.Symbol == "" {
		return true
	}
	for _, s := range symbols {
		if s == r.Symbol {
			return true
		}
	}
	return false
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *Client) Requests() []search.SearchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]search.SearchRequest(nil), c.requests...)
}

// LastRequest - последний запрос, пустой если вызовов не было
func (c *Client) LastRequest() search.SearchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return search.SearchRequest{}
	}
	return c.requests[len(c.requests)-1]
}

func (c *Client) Reset() {
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}
