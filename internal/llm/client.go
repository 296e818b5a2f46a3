package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrOffline       = errors.New("llm disabled in offline mode")
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOffline    = "offline"
	ProviderMock       = "mock"
)

// Client - одна реплика модели: системный промпт плюс запрос
type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Fatal - ошибки, после которых повторять запрос или подменять ответ офлайн-отчетом бессмысленно:
// ключ не принят или закончились деньги
func Fatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrQuotaExceeded)
}
