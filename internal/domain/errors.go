package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// валидация запросов на анализ
var (
	ErrEmptyQuestion       = errors.New("question cannot be empty")
	ErrQuestionTooLong     = errors.New("question too long")
	ErrInvalidAnalysisType = errors.New("invalid analysis type")
	ErrInvalidTimeframe    = errors.New("invalid timeframe")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrTooManySymbols      = errors.New("too many symbols")
)

// портфель
var (
	ErrNoSymbols            = errors.New("at least one symbol is required")
	ErrWeightsMismatch      = errors.New("weights count must match symbols count")
	ErrNegativeWeight       = errors.New("weights must be non-negative")
	ErrZeroWeights          = errors.New("weights must sum to a positive value")
	ErrInvalidRiskTolerance = errors.New("invalid risk tolerance")
)

// алерты
var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrAlertExists      = errors.New("alert already exists")
	ErrInvalidCondition = errors.New("invalid alert condition")
	ErrInvalidThreshold = errors.New("threshold must be positive")
)

// пайплайн анализа
var (
	ErrLLMNotConfigured = errors.New("OpenAI API key not configured")
	ErrLLMFailed        = errors.New("llm request failed")
	ErrNoMarketData     = errors.New("no market data available")
	ErrNoAgentResponses = errors.New("no agent responses received")
	ErrAnalysisTimeout  = errors.New("analysis timed out")
)

// источники
var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidTrustLevel = errors.New("invalid trust level")
)

var (
	ErrInvalidMaxRetries    = errors.New("max retries must be non-negative")
	ErrMaxRetriesExceeded   = errors.New("max retries cannot exceed 10")
	ErrInvalidMinConfidence = errors.New("min confidence must be within [0, 1]")
)
