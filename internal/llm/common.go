package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ответы длиннее считаем мусором, отчет агента столько не весит
const maxResponseBytes = 4 << 20

// ChatRequest - тело /chat/completions для OpenAI-совместимых API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Model   string    `json:"model,omitempty"`
	Choices []Choice  `json:"choices"`
	Usage   *Usage    `json:"usage,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// APIError - ошибка в теле ответа, OpenRouter присылает ее и с кодом 200
type APIError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

func NewChatRequest(model, system, prompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
}

// WithSampling - temperature < 0 значит дефолт провайдера
func (r ChatRequest) WithSampling(temperature float64, maxTokens int) ChatRequest {
	if temperature >= 0 {
		t := temperature
		r.Temperature = &t
	}
	if maxTokens > 0 {
		r.MaxTokens = maxTokens
	}
	return r
}

// ClassifyStatus переводит HTTP-статус провайдера в ошибки пакета.
// Используется и HTTP-клиентами, и клиентом на SDK.
func ClassifyStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed
	case status == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: provider unavailable (status %d)", ErrRequestFailed, status)
	case message != "":
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, status, message)
	default:
		return fmt.Errorf("%w: status %d", ErrRequestFailed, status)
	}
}

// ErrorMessage достает error.message из тела ответа, если он там есть
func ErrorMessage(body []byte) string {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == nil {
		return ""
	}
	return resp.Error.Message
}

func ParseChatResponse(body []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error.Message)
	}
	return &resp, nil
}

// ExtractContent - текст первого варианта, пустой ответ считается ошибкой
func ExtractContent(resp *ChatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		// таймаут пайплайна не должен превращаться в ошибку провайдера
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
