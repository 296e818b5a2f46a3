package agent

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
)

// Spec - описание роли агента, может переопределяться из YAML
type Spec struct {
	Name         string
	Title        string
	Role         string
	Tools        []Tool
	Keywords     []string
	Instructions string
}

var specs = map[string]Spec{
	domain.AgentMarketResearch: {
		Name:  domain.AgentMarketResearch,
		Title: "Market Research Agent",
		Role:  "Comprehensive market research and news analysis",
		Tools: []Tool{ToolWebSearch},
		Keywords: []string{
			"news", "market", "trend", "development", "regulat", "economy", "fed", "earnings", "announce",
		},
		Instructions: `- Search for latest market news, trends, and developments
- Focus on credible financial sources (Reuters, Bloomberg, CNBC, etc.)
- Analyze market sentiment and investor behavior
- Include regulatory changes and economic indicators
- Always cite sources with URLs
- Provide context and implications for each finding`,
	},

	domain.AgentFinancialData: {
		Name:  domain.AgentFinancialData,
		Title: "Financial Data Analyst",
		Role:  "Comprehensive financial data analysis and technical indicators",
		Tools: []Tool{ToolMarketData},
		Keywords: []string{
			"price", "valuation", "p/e", "revenue", "earnings", "ratio", "fundamental", "buy", "sell", "hold", "market cap",
		},
		Instructions: `- Analyze stock prices, volume, and market cap
- Calculate and interpret technical indicators (RSI, MACD, Moving Averages)
- Evaluate financial ratios (P/E, P/B, ROE, Debt-to-Equity)
- Assess earnings growth and revenue trends
- Compare with industry peers and benchmarks
- Present data in clear tables and charts
- Provide buy/sell/hold recommendations with reasoning`,
	},

	domain.AgentTechnical: {
		Name:  domain.AgentTechnical,
		Title: "Technical Analysis Specialist",
		Role:  "Advanced technical analysis and chart patterns",
		Tools: []Tool{ToolMarketData},
		Keywords: []string{
			"technical", "chart", "pattern", "support", "resistance", "rsi", "macd", "moving average", "fibonacci", "momentum", "breakout",
		},
		Instructions: `- Identify chart patterns (head & shoulders, triangles, flags)
- Analyze support and resistance levels
- Calculate Fibonacci retracements and extensions
- Assess momentum indicators (RSI, Stochastic, Williams %R)
- Evaluate volume analysis and price action
- Identify trend reversals and continuation patterns
- Provide entry/exit points with risk management
- Use candlestick patterns for short-term analysis`,
	},

	domain.AgentRisk: {
		Name:  domain.AgentRisk,
		Title: "Risk Management Specialist",
		Role:  "Comprehensive risk assessment and portfolio analysis",
		Tools: []Tool{ToolMarketData, ToolWebSearch},
		Keywords: []string{
			"risk", "volatil", "drawdown", "var", "hedge", "downside", "exposure", "recession", "black swan",
		},
		Instructions: `- Assess market risk and volatility
- Analyze company-specific risks (financial, operational, regulatory)
- Evaluate sector and industry risks
- Calculate Value at Risk (VaR) and maximum drawdown
- Assess correlation with broader market indices
- Identify black swan event possibilities
- Provide risk mitigation strategies
- Evaluate liquidity and market depth
- Consider geopolitical and macroeconomic risks`,
	},

	domain.AgentSentiment: {
		Name:  domain.AgentSentiment,
		Title: "Market Sentiment Analyst",
		Role:  "Social media sentiment and market psychology analysis",
		Tools: []Tool{ToolWebSearch},
		Keywords: []string{
			"sentiment", "social", "reddit", "twitter", "analyst rating", "fear", "greed", "short interest", "insider", "options flow",
		},
		Instructions: `- Analyze social media sentiment (Twitter, Reddit, StockTwits)
- Monitor institutional investor sentiment
- Track analyst rating changes and price targets
- Assess retail vs institutional trading patterns
- Identify market fear/greed indicators
- Monitor options flow and short interest
- Analyze news sentiment and media coverage
- Track insider trading activity
- Provide contrarian investment opportunities`,
	},

	domain.AgentPortfolio: {
		Name:  domain.AgentPortfolio,
		Title: "Portfolio Optimization Specialist",
		Role:  "Portfolio construction and optimization strategies",
		Tools: []Tool{ToolMarketData},
		Keywords: []string{
			"portfolio", "allocation", "diversif", "rebalanc", "weight", "sharpe", "dollar-cost", "sector rotation",
		},
		Instructions: `- Design diversified portfolio strategies
- Calculate optimal asset allocation
- Implement Modern Portfolio Theory principles
- Assess correlation and diversification benefits
- Provide sector rotation strategies
- Design hedging strategies
- Calculate expected returns and Sharpe ratios
- Recommend rebalancing schedules
- Implement dollar-cost averaging strategies
- Provide tax-efficient investment strategies`,
	},
}

// rosterOrder - порядок участников команды
var rosterOrder = []string{
	domain.AgentMarketResearch,
	domain.AgentFinancialData,
	domain.AgentTechnical,
	domain.AgentRisk,
	domain.AgentSentiment,
	domain.AgentPortfolio,
}

// DefaultSpec - встроенное описание агента по имени
func DefaultSpec(name string) (Spec, bool) {
	s, ok := specs[name]
	if !ok {
		return Spec{}, false
	}
	s.Tools = append([]Tool(nil), s.Tools...)
	s.Keywords = append([]string(nil), s.Keywords...)
	return s, true
}

// SpecializedAgent - обертка над BaseAgent с конкретной специализацией
type SpecializedAgent struct{ *BaseAgent }

// NewAgent создает агента по имени. Возвращает nil если имя неизвестно.
func NewAgent(name string, llmClient llm.Client, log *zap.Logger) *SpecializedAgent {
	spec, ok := DefaultSpec(name)
	if !ok {
		return nil
	}
	return NewFromSpec(spec, llmClient, log)
}

func NewFromSpec(spec Spec, llmClient llm.Client, log *zap.Logger) *SpecializedAgent {
	return &SpecializedAgent{BaseAgent: NewBaseAgent(spec, llmClient, log)}
}
