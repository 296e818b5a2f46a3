package domain

import (
	"regexp"
	"strings"
	"time"
)

const (
	MaxQuestionLength = 2000
	MaxSymbols        = 10
)

var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,12}$`)

type QueryRequest struct {
	Question     string
	AnalysisType AnalysisType
	Symbols      []string
	Timeframe    Timeframe
}

// Normalize - дефолты и чистка тикеров (как в форме фронтенда: trim + upper)
func (q *QueryRequest) Normalize() {
	q.Question = strings.TrimSpace(q.Question)
	if q.AnalysisType == "" {
		q.AnalysisType = DefaultAnalysisType
	}
	if q.Timeframe == "" {
		q.Timeframe = DefaultTimeframe
	}
	q.Symbols = NormalizeSymbols(q.Symbols)
}

func (q *QueryRequest) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(q.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if !q.AnalysisType.IsValid() {
		return ErrInvalidAnalysisType
	}
	if !q.Timeframe.IsValid() {
		return ErrInvalidTimeframe
	}
	return ValidateSymbols(q.Symbols)
}

func NormalizeSymbols(symbols []string) []string {
	if len(symbols) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ParseSymbols - "AAPL, msft,, GOOGL" -> [AAPL MSFT GOOGL]
func ParseSymbols(s string) []string {
	return NormalizeSymbols(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	}))
}

func ValidateSymbols(symbols []string) error {
	if len(symbols) > MaxSymbols {
		return ErrTooManySymbols
	}
	for _, s := range symbols {
		if !symbolRe.MatchString(s) {
			return ErrInvalidSymbol
		}
	}
	return nil
}

type QueryResponse struct {
	Response string
	Metadata QueryMetadata
}

type QueryMetadata struct {
	AnalysisType    AnalysisType
	SymbolsAnalyzed []string
	Timeframe       Timeframe
	Timestamp       time.Time
	QueryID         int64
	AgentsUsed      []string
	Offline         bool
	Sources         []SourceRef
	Warnings        []string
	ProcessingTime  time.Duration
}

type SourceRef struct {
	Marker     string
	Title      string
	URL        string
	TrustLevel TrustLevel
}
