package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/finanalyst/internal/cache"
	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

// querySuffix - уточнение поискового запроса под тип анализа
func querySuffix(t domain.AnalysisType) string {
	switch t {
	case domain.AnalysisTechnical:
		return "stock technical analysis"
	case domain.AnalysisRisk:
		return "stock risks outlook"
	case domain.AnalysisSentiment:
		return "stock sentiment analyst rating"
	case domain.AnalysisPortfolio:
		return "stock outlook"
	default:
		return "stock news"
	}
}

// expandQueries - по запросу на тикер (первые по порядку) плюс сам вопрос, не больше max
func expandQueries(req domain.QueryRequest, max int) []string {
	if max <= 0 {
		max = 1
	}

	queries := make([]string, 0, max)
	seen := make(map[string]bool)
	add := func(q string) {
		n := normalizeQuery(q)
		if n == "" || seen[n] || len(queries) >= max {
			return
		}
		seen[n] = true
		queries = append(queries, q)
	}

	suffix := querySuffix(req.AnalysisType)
	for _, sym := range req.Symbols {
		if len(queries) >= max-1 && len(queries) > 0 {
			break
		}
		add(sym + " " + suffix)
	}
	add(req.Question)

	return queries
}

// newsQuery - набор поисковых запросов одного анализа
type newsQuery struct {
	queries    []string
	symbols    []string
	timeRange  string
	maxResults int
}

func (s *AnalysisService) searchWithCache(ctx context.Context, q newsQuery) ([]search.SearchResult, error) {
	maxResults := q.maxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	sctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	resultsChan := make(chan []search.SearchResult, len(q.queries))
	g, gctx := errgroup.WithContext(sctx)

	for i, query := range q.queries {
		req := search.SearchRequest{
			Query:       query,
			MaxResults:  maxResults,
			SearchDepth: "basic",
			TimeRange:   q.timeRange,
			Topic:       search.TopicNews,
		}
		// новости по тикерам запрашиваем один раз, с первым запросом
		if i == 0 {
			req.Symbols = q.symbols
		}
		g.Go(func() error {
			results, err := s.searchSingleQuery(gctx, req)
			if err != nil {
				s.logger.Warn("search query failed",
					zap.Error(err),
					zap.String("query", req.Query),
				)
				return nil
			}
			resultsChan <- results
			return nil
		})
	}

	_ = g.Wait()
	close(resultsChan)

	// таймаут поиска не фатален, но отмена самого запроса - да
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := search.NewCollector()
	for results := range resultsChan {
		collector.Add(results)
	}

	all := s.trust.Rank(collector.Results())
	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all, nil
}

func (s *AnalysisService) searchSingleQuery(ctx context.Context, req search.SearchRequest) ([]search.SearchResult, error) {
	key := searchCacheKey(req)

	if s.cache != nil {
		var cached []search.SearchResult
		ok, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.Warn("search cache read failed", zap.Error(err))
		}
		if ok {
			return cached, nil
		}
	}

	resp, err := s.search.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, resp.Results, s.config.CacheTTL); err != nil {
			s.logger.Warn("search cache write failed", zap.Error(err))
		}
	}

	return resp.Results, nil
}

func searchCacheKey(req search.SearchRequest) string {
	sorted := make([]string, len(req.Symbols))
	copy(sorted, req.Symbols)
	sort.Strings(sorted)
	data := fmt.Sprintf("%s|%s|%s|%d", normalizeQuery(req.Query), strings.Join(sorted, ","), req.TimeRange, req.MaxResults)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("search:%x", hash[:8])
}

func normalizeQuery(q string) string {
	q = strings.ToLower(q)
	q = strings.TrimSpace(q)
	return strings.Join(strings.Fields(q), " ")
}

func (s *AnalysisService) toSourceRefs(results []search.SearchResult) []domain.SourceRef {
	refs := make([]domain.SourceRef, len(results))
	for i, r := range results {
		refs[i] = domain.SourceRef{
			Marker:     fmt.Sprintf("[S%d]", i+1),
			Title:      r.Title,
			URL:        r.URL,
			TrustLevel: s.trust.Level(r.URL),
		}
	}
	return refs
}

func (s *AnalysisService) reviewWithCritic(ctx context.Context, in ReviewInput) string {
	for attempt := 0; attempt <= s.criticConfig.MaxRetries; attempt++ {
		result, err := s.critic.Review(ctx, in)
		if err != nil {
			s.logger.Warn("critic review failed, returning current answer",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return in.Answer
		}

		if !result.NeedsRevision(s.criticConfig) {
			return in.Answer
		}

		if attempt >= s.criticConfig.MaxRetries {
			s.logger.Info("max critic retries reached, returning last answer",
				zap.Int("max_retries", s.criticConfig.MaxRetries),
			)
			return in.Answer
		}

		improved, err := s.improveAnswer(ctx, in, result)
		if err != nil || strings.TrimSpace(improved) == "" {
			s.logger.Warn("failed to improve answer, returning current",
				zap.Error(err),
			)
			return in.Answer
		}

		in.Answer = improved
	}

	return in.Answer
}

const improveSystemPrompt = `You are a senior financial analyst editing a research report.

Your task is to improve the report based on reviewer feedback.

Rules:
1. Use ONLY information from the provided sources and market data
2. Reference sources as [S1], [S2], etc.
3. Fix ALL issues mentioned by the reviewer
4. Keep the good parts and the structure of the original report
5. Keep confidence levels and risks for every recommendation
6. Be objective, present different viewpoints`

// maxEditorSuggestions - редактору уходят только первые советы критика
const maxEditorSuggestions = 3

func (s *AnalysisService) improveAnswer(ctx context.Context, in ReviewInput, review *domain.CriticResult) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("improve answer: %w", domain.ErrLLMNotConfigured)
	}

	var sb strings.Builder
	sb.WriteString("=== REVIEWER FEEDBACK ===\n")
	sb.WriteString(review.Feedback(maxEditorSuggestions))

	sb.WriteString("\n=== ORIGINAL REPORT ===\n")
	sb.WriteString(in.Answer)
	sb.WriteString("\n\n")

	if in.MarketDigest != "" {
		sb.WriteString("=== MARKET DATA ===\n")
		sb.WriteString(in.MarketDigest)
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== SOURCES ===\n")
	writeSources(&sb, in.Sources)

	sb.WriteString("=== ORIGINAL QUESTION ===\n")
	sb.WriteString(in.Question)
	sb.WriteString("\n\n")

	sb.WriteString("=== INSTRUCTIONS ===\n")
	sb.WriteString("Please fix these issues and provide an improved report. ")
	sb.WriteString("Keep using only the provided sources and market data. ")
	sb.WriteString("Make sure all claims are properly cited.")

	return s.llm.CompleteWithSystem(ctx, improveSystemPrompt, sb.String())
}
