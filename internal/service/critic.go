package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/agent"
	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

const CriticSystemPrompt = `You are a critical reviewer for financial analysis reports.

Your task: decide whether the report can be shown to an investor as is.

Check for:
1. ACCURACY: every price, ratio and indicator must match the market data block
2. SOURCING: news claims must cite the provided sources as [S1], [S2]
3. HALLUCINATIONS: events, targets or numbers that appear in none of the inputs
4. COVERAGE: each requested symbol gets its own assessment
5. RISK: recommendations come with risks and a confidence level

Response format (JSON only):
{
  "approved": true/false,
  "issues": ["issue1", "issue2"],
  "suggestions": ["suggestion1"],
  "missing_symbols": ["TICKER"],
  "confidence": 0.0-1.0
}`

// сколько текста источника видит критик и редактор
const sourceExcerptLen = 1500

// ReviewInput - отчет и все, на чем он строился
type ReviewInput struct {
	Question     string
	Answer       string
	Symbols      []string
	Sources      []search.SearchResult
	MarketDigest string
}

type CriticService struct {
	llm    llm.Client
	logger *zap.Logger
	config domain.CriticConfig
}

func NewCriticService(llmClient llm.Client, logger *zap.Logger, config domain.CriticConfig) *CriticService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CriticService{
		llm:    llmClient,
		logger: logger,
		config: config,
	}
}

// Review - LLM-ревью плюс детерминированная проверка, что отчет упоминает каждый тикер
func (s *CriticService) Review(ctx context.Context, in ReviewInput) (*domain.CriticResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("reviewing report",
		zap.Int("answer_length", len(in.Answer)),
		zap.Int("sources_count", len(in.Sources)),
		zap.Strings("symbols", in.Symbols),
	)

	response, err := s.llm.CompleteWithSystem(ctx, CriticSystemPrompt, s.buildPrompt(in))
	if err != nil {
		s.logger.Error("LLM review failed", zap.Error(err))
		return nil, err
	}

	result := s.parseResponse(response)
	result.MissingSymbols = append(result.MissingSymbols, uncoveredSymbols(in.Answer, in.Symbols)...)
	result.Normalize()

	s.logger.Info("review completed",
		zap.Bool("approved", result.Approved),
		zap.Int("issues_count", len(result.Issues)),
		zap.Strings("missing_symbols", result.MissingSymbols),
		zap.Float64("confidence", result.Confidence),
	)

	return result, nil
}

func (s *CriticService) buildPrompt(in ReviewInput) string {
	var sb strings.Builder

	sb.WriteString("=== ORIGINAL QUESTION ===\n")
	sb.WriteString(in.Question)
	sb.WriteString("\n\n")

	if len(in.Symbols) > 0 {
		sb.WriteString("=== REQUESTED SYMBOLS ===\n")
		sb.WriteString(strings.Join(in.Symbols, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== SOURCES PROVIDED ===\n")
	writeSources(&sb, in.Sources)

	if in.MarketDigest != "" {
		sb.WriteString("=== MARKET DATA PROVIDED ===\n")
		sb.WriteString(in.MarketDigest)
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== SUCCESS CRITERIA ===\n")
	sb.WriteString(agent.SuccessCriteria())
	sb.WriteString("\n\n")

	sb.WriteString("=== REPORT TO REVIEW ===\n")
	sb.WriteString(in.Answer)
	sb.WriteString("\n\n")

	sb.WriteString("=== INSTRUCTIONS ===\n")
	sb.WriteString("Compare every figure in the report with the market data and every news claim with the sources. ")
	if s.config.StrictMode {
		sb.WriteString("Set approved to false if any success criterion is only partially met. ")
	}
	sb.WriteString("Respond with JSON only.")

	return sb.String()
}

func (s *CriticService) parseResponse(llmResponse string) *domain.CriticResult {
	var raw struct {
		Approved       bool     `json:"approved"`
		Issues         []string `json:"issues"`
		Suggestions    []string `json:"suggestions"`
		MissingSymbols []string `json:"missing_symbols"`
		Confidence     float64  `json:"confidence"`
	}

	if err := json.Unmarshal([]byte(extractJSON(llmResponse)), &raw); err != nil {
		s.logger.Warn("failed to parse critic response as JSON",
			zap.Error(err),
			zap.String("response", llmResponse),
		)
		// одобряем, но с замечанием: отчет уйдет на одну правку
		return &domain.CriticResult{
			Approved:   true,
			Issues:     []string{"critic_parse_failed: could not parse LLM response"},
			Confidence: 0.3,
		}
	}

	return &domain.CriticResult{
		Approved:       raw.Approved,
		Issues:         raw.Issues,
		Suggestions:    raw.Suggestions,
		MissingSymbols: raw.MissingSymbols,
		Confidence:     raw.Confidence,
	}
}

// uncoveredSymbols - тикеры, которые ни разу не встречаются в отчете отдельным словом
func uncoveredSymbols(answer string, symbols []string) []string {
	var missing []string
	for _, sym := range symbols {
		re, err := regexp.Compile(`(^|[^A-Za-z0-9])` + regexp.QuoteMeta(sym) + `($|[^A-Za-z0-9])`)
		if err != nil || !re.MatchString(answer) {
			missing = append(missing, sym)
		}
	}
	return missing
}

func writeSources(sb *strings.Builder, sources []search.SearchResult) {
	if len(sources) == 0 {
		sb.WriteString("No sources provided.\n\n")
		return
	}
	for i, src := range sources {
		fmt.Fprintf(sb, "[S%d] %s (%s)\n", i+1, src.Title, src.URL)
		content := src.Content
		if len(content) > sourceExcerptLen {
			content = content[:sourceExcerptLen] + "..."
		}
		fmt.Fprintf(sb, "%s\n\n", content)
	}
}

// extractJSON достает JSON из ответа LLM который может содержать текст вокруг
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}
