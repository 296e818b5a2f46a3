package agent

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

// AnalysisPrompt - постановка задачи для агентов и синтеза, зависит от типа анализа
func AnalysisPrompt(req AgentRequest) string {
	symbols := "General market analysis"
	if len(req.Symbols) > 0 {
		symbols = strings.Join(req.Symbols, ", ")
	}
	tf := req.Timeframe
	if tf == "" {
		tf = domain.DefaultTimeframe
	}

	var sb strings.Builder
	if req.AnalysisType == domain.AnalysisQuick {
		fmt.Fprintf(&sb, "Quick Analysis Request: %s\nSymbols: %s\nTimeframe: %s\n\n", req.Question, symbols, tf)
		sb.WriteString("Please provide a concise analysis including:\n")
		sb.WriteString("1. Current stock price and basic metrics\n")
		sb.WriteString("2. Brief market overview\n")
		sb.WriteString("3. Key highlights and recommendations\n")
		sb.WriteString("Keep it brief and focused on essential information.\n")
		return sb.String()
	}

	at := req.AnalysisType
	if at == "" {
		at = domain.DefaultAnalysisType
	}
	fmt.Fprintf(&sb, "Analysis Request: %s\nAnalysis Type: %s\nSymbols: %s\nTimeframe: %s\n\n", req.Question, at, symbols, tf)
	sb.WriteString("Please provide an analysis including:\n")
	for i, s := range sectionsFor(at) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return sb.String()
}

func sectionsFor(t domain.AnalysisType) []string {
	switch t {
	case domain.AnalysisTechnical:
		return []string{"Executive Summary", "Trend and Moving Averages", "Momentum (RSI, MACD)", "Support and Resistance", "Entry/Exit Levels with Risk Management"}
	case domain.AnalysisRisk:
		return []string{"Executive Summary", "Volatility and Drawdown", "Value at Risk", "Company and Sector Risks", "Macro and Geopolitical Risks", "Risk Mitigation"}
	case domain.AnalysisSentiment:
		return []string{"Executive Summary", "News Sentiment", "Analyst Ratings and Price Targets", "Institutional vs Retail Positioning", "Contrarian Opportunities"}
	case domain.AnalysisPortfolio:
		return []string{"Portfolio Composition", "Risk Assessment and Diversification", "Expected Returns and Volatility", "Rebalancing Recommendations", "Alternative Portfolio Suggestions"}
	default:
		return []string{"Executive Summary", "Market Research & News", "Financial Data Analysis", "Technical Analysis", "Risk Assessment", "Market Sentiment", "Portfolio Recommendations", "Actionable Insights"}
	}
}

// PortfolioPrompt - запрос к портфельному агенту, stats уже посчитаны
func PortfolioPrompt(req domain.PortfolioRequest, stats string) string {
	weights := "Equal weight"
	if len(req.Weights) > 0 {
		parts := make([]string, len(req.Weights))
		for i, w := range req.Weights {
			parts[i] = fmt.Sprintf("%g", w)
		}
		weights = strings.Join(parts, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Portfolio Analysis Request:\n")
	fmt.Fprintf(&sb, "Symbols: %s\nWeights: %s\nRisk Tolerance: %s\n\n", strings.Join(req.Symbols, ", "), weights, req.RiskTolerance)
	if stats != "" {
		sb.WriteString("Computed portfolio statistics:\n")
		sb.WriteString(stats)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Please provide:\n")
	for i, s := range sectionsFor(domain.AnalysisPortfolio) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return sb.String()
}

const hubName = "Financial Intelligence Hub"

var teamInstructions = []string{
	"Always provide executive summary at the beginning",
	"Include confidence levels for all recommendations",
	"Use professional financial terminology",
	"Provide both short-term and long-term perspectives",
	"Include risk-reward ratios for all recommendations",
	"Format data in clear tables and charts",
	"Always cite sources and provide evidence",
	"Include contrarian viewpoints when relevant",
	"Provide specific price targets and timeframes",
	"End with actionable next steps",
}

const successCriteria = `A comprehensive, multi-dimensional financial analysis that includes:
1. Market research and news analysis
2. Financial data and technical indicators
3. Risk assessment and management
4. Market sentiment analysis
5. Portfolio optimization recommendations
6. Clear actionable insights with confidence levels
7. Professional formatting with tables, charts, and executive summary`

// SuccessCriteria - критерии качества ответа команды, их же проверяет критик
func SuccessCriteria() string { return successCriteria }

func synthesisSystemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s, coordinating a team of specialist financial analysts.\n", hubName)
	sb.WriteString("Merge the specialists' findings into one coherent report. Point out where they agree and where they disagree.\n")
	sb.WriteString("Keep source citations like [S1], [S2] exactly as the specialists used them. Do not invent numbers that no specialist reported.\n\n")
	sb.WriteString("Instructions:\n")
	for _, in := range teamInstructions {
		fmt.Fprintf(&sb, "- %s\n", in)
	}
	sb.WriteString("\nSuccess criteria:\n")
	sb.WriteString(successCriteria)
	return sb.String()
}
