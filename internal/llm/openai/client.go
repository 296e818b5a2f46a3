package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

const DefaultModel = "gpt-4o"

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // пусто - api.openai.com
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Client - Chat Completions через официальный SDK
type Client struct {
	client      oai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      oai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(prompt),
		},
	}
	if c.temperature >= 0 {
		params.Temperature = oai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = oai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.mapError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", llm.ErrEmptyResponse
	}

	c.logger.Debug("openai completion",
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", llm.ErrRequestFailed, err)
	}

	mapped := llm.ClassifyStatus(apiErr.StatusCode, apiErr.Message)
	if !llm.Fatal(mapped) && apiErr.StatusCode != http.StatusTooManyRequests {
		c.logger.Error("openai request failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message),
		)
	}
	return mapped
}

var _ llm.Client = (*Client)(nil)
