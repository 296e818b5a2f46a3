package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

const DefaultModel = "openai/gpt-4o"

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64 // < 0 - дефолт модели
	MaxTokens   int
	Timeout     time.Duration
}

// Client - OpenAI-совместимый HTTP API OpenRouter, запасной провайдер
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	req := llm.NewChatRequest(c.model, system, prompt).WithSampling(c.temperature, c.maxTokens)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kitbuilder587/finanalyst")
	httpReq.Header.Set("X-Title", "Financial Analyst Multi-Agent System")

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return "", err
	}

	if statusCode != http.StatusOK {
		msg := llm.ErrorMessage(respBody)
		c.logger.Warn("openrouter request failed",
			zap.Int("status", statusCode),
			zap.String("message", msg),
		)
		return "", llm.ClassifyStatus(statusCode, msg)
	}

	chatResp, err := llm.ParseChatResponse(respBody)
	if err != nil {
		return "", err
	}
	if chatResp.Usage != nil {
		c.logger.Debug("openrouter completion",
			zap.String("model", chatResp.Model),
			zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
			zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		)
	}

	return llm.ExtractContent(chatResp)
}

var _ llm.Client = (*Client)(nil)
