package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

const (
	minConfidence = 0.5
	// потолок уверенности агента, которому не досталось его данных
	starvedConfidence = 0.6
)

// BaseAgent - агент, целиком описанный Spec: роль, инструменты и ключевые слова
type BaseAgent struct {
	spec   Spec
	llm    llm.Client
	logger *zap.Logger
}

func NewBaseAgent(spec Spec, llmClient llm.Client, logger *zap.Logger) *BaseAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseAgent{spec: spec, llm: llmClient, logger: logger.With(zap.String("agent", spec.Name))}
}

func (b *BaseAgent) Name() string  { return b.spec.Name }
func (b *BaseAgent) Title() string { return b.spec.Title }
func (b *BaseAgent) Role() string  { return b.spec.Role }
func (b *BaseAgent) Tools() []Tool { return b.spec.Tools }

// CanHandle - доля совпавших ключевых слов, любое совпадение дает не меньше 0.5
func (b *BaseAgent) CanHandle(question string) float64 {
	if len(b.spec.Keywords) == 0 {
		return 0
	}

	q := strings.ToLower(question)
	hits := 0
	for _, kw := range b.spec.Keywords {
		if strings.Contains(q, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return max(minConfidence, float64(hits)/float64(len(b.spec.Keywords)))
}

func (b *BaseAgent) Process(ctx context.Context, req AgentRequest) (*AgentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.ForTools(b.spec.Tools)

	content, err := b.llm.CompleteWithSystem(ctx, b.systemPrompt(), buildUserPrompt(req))
	if err != nil {
		b.logger.Error("LLM call failed", zap.Error(err))
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	return &AgentResponse{
		AgentName:  b.spec.Name,
		Content:    content,
		Confidence: b.confidence(req),
		SourceRefs: parseSourceRefs(content),
		Insights:   parseInsights(content),
	}, nil
}

func (b *BaseAgent) confidence(req AgentRequest) float64 {
	conf := max(minConfidence, b.CanHandle(req.Question))

	starved := len(b.spec.Tools) > 0
	if slices.Contains(b.spec.Tools, ToolMarketData) && req.MarketDigest != "" {
		starved = false
	}
	if slices.Contains(b.spec.Tools, ToolWebSearch) && len(req.SearchResults) > 0 {
		starved = false
	}
	if starved {
		conf = min(conf, starvedConfidence)
	}
	return conf
}

func (b *BaseAgent) systemPrompt() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are the %s.\nRole: %s\n\nInstructions:\n%s\n\n", b.spec.Title, b.spec.Role, strings.TrimSpace(b.spec.Instructions))

	sb.WriteString("Rules:\n")
	if slices.Contains(b.spec.Tools, ToolMarketData) {
		sb.WriteString("- Use the market data block for every number you quote; never invent prices or ratios.\n")
		sb.WriteString("- If a metric is missing from the data, say it is unavailable.\n")
	}
	if slices.Contains(b.spec.Tools, ToolWebSearch) {
		sb.WriteString("- Cite web sources as [S1], [S2] and include their URLs.\n")
	}
	sb.WriteString("- Format the answer in markdown.\n")
	sb.WriteString("- Finish with a section:\nKey insights:\n- insight 1\n- insight 2\n- insight 3")

	return sb.String()
}

func buildUserPrompt(req AgentRequest) string {
	var sb strings.Builder

	sb.WriteString(AnalysisPrompt(req))
	sb.WriteString("\n")

	section := func(title, body string) {
		if body == "" {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	section("Context", req.Context)
	section("Market data", req.MarketDigest)

	if len(req.SearchResults) > 0 {
		sb.WriteString("Sources:\n")
		for i, r := range req.SearchResults {
			fmt.Fprintf(&sb, "[S%d] %s\nURL: %s\nContent: %s\n\n", i+1, r.Title, r.URL, r.Content)
		}
	}

	return strings.TrimSpace(sb.String())
}
