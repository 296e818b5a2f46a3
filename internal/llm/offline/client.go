package offline

import (
	"context"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

// Client - заглушка для LLM_PROVIDER=offline: всегда ErrOffline,
// пайплайн в этом случае собирает отчет без модели
type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", llm.ErrOffline
}

var _ llm.Client = (*Client)(nil)
