package agent

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

var (
	ErrEmptyQuestion     = errors.New("question cannot be empty")
	ErrEmptyContent      = errors.New("response content cannot be empty")
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")
	ErrUnknownAgent      = errors.New("unknown agent")
)

// Tool - источник данных, к которому у агента есть доступ
type Tool string

const (
	ToolMarketData Tool = "market_data"
	ToolWebSearch  Tool = "web_search"
)

type Agent interface {
	Name() string
	Title() string
	Role() string
	Tools() []Tool
	CanHandle(question string) float64 // 0.0-1.0
	Process(ctx context.Context, req AgentRequest) (*AgentResponse, error)
}

type AgentRequest struct {
	Question      string
	AnalysisType  domain.AnalysisType
	Symbols       []string
	Timeframe     domain.Timeframe
	MarketDigest  string // посчитанные индикаторы, см. analysis.Digest
	SearchResults []search.SearchResult
	Context       string
}

func (r AgentRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// ForTools оставляет в запросе только данные, доступные по tools
func (r AgentRequest) ForTools(tools []Tool) AgentRequest {
	if !slices.Contains(tools, ToolMarketData) {
		r.MarketDigest = ""
	}
	if !slices.Contains(tools, ToolWebSearch) {
		r.SearchResults = nil
	}
	return r
}

type AgentResponse struct {
	AgentName  string
	Content    string
	Confidence float64
	SourceRefs []string
	Insights   []string
}

func (r AgentResponse) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}
