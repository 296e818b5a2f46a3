package domain

import (
	"strings"
	"time"
)

type AnalysisType string

const (
	AnalysisQuick         AnalysisType = "quick"
	AnalysisComprehensive AnalysisType = "comprehensive"
	AnalysisTechnical     AnalysisType = "technical"
	AnalysisRisk          AnalysisType = "risk"
	AnalysisSentiment     AnalysisType = "sentiment"
	AnalysisPortfolio     AnalysisType = "portfolio"
)

const DefaultAnalysisType = AnalysisComprehensive

func (t AnalysisType) IsValid() bool {
	switch t {
	case AnalysisQuick, AnalysisComprehensive, AnalysisTechnical,
		AnalysisRisk, AnalysisSentiment, AnalysisPortfolio:
		return true
	}
	return false
}

func (t AnalysisType) String() string { return string(t) }

// Title - для заголовков отчетов
func (t AnalysisType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func AllAnalysisTypes() []AnalysisType {
	return []AnalysisType{
		AnalysisQuick, AnalysisComprehensive, AnalysisTechnical,
		AnalysisRisk, AnalysisSentiment, AnalysisPortfolio,
	}
}

// Timeframe - период истории котировок, значения как у Yahoo range
type Timeframe string

const (
	Timeframe1D  Timeframe = "1d"
	Timeframe5D  Timeframe = "5d"
	Timeframe1M  Timeframe = "1mo"
	Timeframe3M  Timeframe = "3mo"
	Timeframe6M  Timeframe = "6mo"
	Timeframe1Y  Timeframe = "1y"
	Timeframe2Y  Timeframe = "2y"
	Timeframe5Y  Timeframe = "5y"
	Timeframe10Y Timeframe = "10y"
	TimeframeYTD Timeframe = "ytd"
	TimeframeMax Timeframe = "max"
)

const DefaultTimeframe = Timeframe1Y

func (tf Timeframe) IsValid() bool {
	switch tf {
	case Timeframe1D, Timeframe5D, Timeframe1M, Timeframe3M, Timeframe6M,
		Timeframe1Y, Timeframe2Y, Timeframe5Y, Timeframe10Y, TimeframeYTD, TimeframeMax:
		return true
	}
	return false
}

func (tf Timeframe) String() string { return string(tf) }

// Interval - размер бара для периода
func (tf Timeframe) Interval() string {
	switch tf {
	case Timeframe1D:
		return "5m"
	case Timeframe5D:
		return "30m"
	case Timeframe5Y, Timeframe10Y, TimeframeMax:
		return "1wk"
	default:
		return "1d"
	}
}

// PeriodsPerYear - для аннуализации волатильности по барам Interval()
func (tf Timeframe) PeriodsPerYear() float64 {
	switch tf.Interval() {
	case "5m":
		return 252 * 78
	case "30m":
		return 252 * 13
	case "1wk":
		return 52
	default:
		return 252
	}
}

type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

func (r RiskTolerance) IsValid() bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

func (r RiskTolerance) String() string { return string(r) }

// Profile - как пайплайн обрабатывает конкретный тип анализа
type Profile struct {
	Type             AnalysisType
	Agents           []string // имена агентов из реестра, по приоритету
	MaxAgents        int
	MaxSearchQueries int
	MaxResults       int
	UseCritic        bool
	Synthesize       bool // false - ответ единственного агента отдается как есть
	Timeout          time.Duration
}

func (p Profile) Validate() error {
	if !p.Type.IsValid() {
		return ErrInvalidAnalysisType
	}
	return nil
}

// Имена агентов, на них ссылаются профили
const (
	AgentMarketResearch = "market-research"
	AgentFinancialData  = "financial-data"
	AgentTechnical      = "technical"
	AgentRisk           = "risk"
	AgentSentiment      = "sentiment"
	AgentPortfolio      = "portfolio"
)

// ProfileFor - таймауты взяты из ожидаемого времени анализа во фронтенде
func ProfileFor(t AnalysisType) Profile {
	switch t {
	case AnalysisQuick:
		return Profile{
			Type:             t,
			Agents:           []string{AgentFinancialData},
			MaxAgents:        1,
			MaxSearchQueries: 1,
			MaxResults:       5,
			Timeout:          60 * time.Second,
		}
	case AnalysisTechnical:
		return Profile{
			Type:             t,
			Agents:           []string{AgentTechnical, AgentFinancialData},
			MaxAgents:        2,
			MaxSearchQueries: 1,
			MaxResults:       5,
			Synthesize:       true,
			Timeout:          180 * time.Second,
		}
	case AnalysisRisk:
		return Profile{
			Type:             t,
			Agents:           []string{AgentRisk, AgentMarketResearch},
			MaxAgents:        2,
			MaxSearchQueries: 2,
			MaxResults:       10,
			UseCritic:        true,
			Synthesize:       true,
			Timeout:          180 * time.Second,
		}
	case AnalysisSentiment:
		return Profile{
			Type:             t,
			Agents:           []string{AgentSentiment, AgentMarketResearch},
			MaxAgents:        2,
			MaxSearchQueries: 3,
			MaxResults:       15,
			Synthesize:       true,
			Timeout:          180 * time.Second,
		}
	case AnalysisPortfolio:
		return Profile{
			Type:             t,
			Agents:           []string{AgentPortfolio, AgentRisk},
			MaxAgents:        2,
			MaxSearchQueries: 1,
			MaxResults:       5,
			Synthesize:       true,
			Timeout:          180 * time.Second,
		}
	default:
		return Profile{
			Type: AnalysisComprehensive,
			Agents: []string{
				AgentMarketResearch, AgentFinancialData, AgentTechnical,
				AgentRisk, AgentSentiment, AgentPortfolio,
			},
			MaxAgents:        6,
			MaxSearchQueries: 3,
			MaxResults:       15,
			UseCritic:        true,
			Synthesize:       true,
			Timeout:          300 * time.Second,
		}
	}
}
