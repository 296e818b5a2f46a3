package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

const (
	DefaultResponse = "This is a mock analysis with sources [S1] and [S2]."

	// критик в режиме LLM_PROVIDER=mock всегда одобряет
	approvedReview = `{"approved": true, "issues": [], "suggestions": [], "confidence": 0.8}`

	criticMarker    = "critical reviewer"
	synthesisMarker = "Financial Intelligence Hub"
)

type LLMCall struct {
	System string
	Prompt string
}

// Client - детерминированная модель: для тестов и для запуска без ключей.
// Приоритет ответа: responder, очередь Then, ошибка, WithResponse, ответ по роли.
type Client struct {
	mu        sync.Mutex
	response  string
	err       error
	delay     time.Duration
	responder func(system, prompt string) (string, error)
	queue     []string
	calls     []LLMCall
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithResponse(response string) *Client {
	c.mu.Lock()
	c.response = response
	c.mu.Unlock()
	return c
}

// Then ставит ответы в очередь, каждый отдается ровно одному вызову
func (c *Client) Then(responses ...string) *Client {
	c.mu.Lock()
	c.queue = append(c.queue, responses...)
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

// WithResponder - ответ в зависимости от промпта, например свой для каждого агента
func (c *Client) WithResponder(fn func(system, prompt string) (string, error)) *Client {
	c.mu.Lock()
	c.responder = fn
	c.mu.Unlock()
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, LLMCall{System: system, Prompt: prompt})
	delay, responder, err := c.delay, c.responder, c.err
	var queued string
	hasQueued := len(c.queue) > 0
	if hasQueued && responder == nil {
		queued, c.queue = c.queue[0], c.queue[1:]
	}
	response := c.response
	c.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	switch {
	case responder != nil:
		return responder(system, prompt)
	case hasQueued:
		return queued, nil
	case err != nil:
		return "", err
	case response != "":
		return response, nil
	case strings.Contains(system, criticMarker):
		return approvedReview, nil
	}
	return DefaultResponse, nil
}

func (c *Client) Calls() []LLMCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LLMCall(nil), c.calls...)
}

func (c *Client) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *Client) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.queue = nil
	c.mu.Unlock()
}

func (c *Client) HasCriticCall() bool {
	return c.CountSystem(criticMarker) > 0
}

func (c *Client) HasSynthesisCall() bool {
	return c.CountSystem(synthesisMarker) > 0
}

// CountSystem - сколько вызовов шло с системным промптом, содержащим marker
func (c *Client) CountSystem(marker string) int {
	n := 0
	for _, call := range c.Calls() {
		if strings.Contains(call.System, marker) {
			n++
		}
	}
	return n
}

var _ llm.Client = (*Client)(nil)
