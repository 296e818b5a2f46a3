package telegram

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

var (
	errPortfolioSyntax = errors.New("portfolio syntax")
	errAlertSyntax     = errors.New("alert syntax")
)

// команды анализа -> тип анализа
var analysisCommands = map[string]domain.AnalysisType{
	"quick":     domain.AnalysisQuick,
	"analyze":   domain.AnalysisComprehensive,
	"technical": domain.AnalysisTechnical,
	"risk":      domain.AnalysisRisk,
	"sentiment": domain.AnalysisSentiment,
}

func analysisTypeFor(command string) (domain.AnalysisType, bool) {
	t, ok := analysisCommands[strings.ToLower(command)]
	return t, ok
}

// ParseAnalysisArgs разбирает "AAPL MSFT | вопрос".
// Без разделителя весь текст считается вопросом.
func ParseAnalysisArgs(args string) (symbols []string, question string) {
	args = strings.TrimSpace(args)
	left, right, found := strings.Cut(args, "|")
	if !found {
		return []string{}, normalizeSpaces(args)
	}
	return domain.ParseSymbols(left), normalizeSpaces(right)
}

// ParsePortfolioArgs разбирает "AAPL:40 MSFT:60 [conservative]".
// Веса либо у всех позиций, либо ни у одной.
func ParsePortfolioArgs(args string) (domain.PortfolioRequest, error) {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})

	var req domain.PortfolioRequest
	if n := len(fields); n > 0 {
		if rt := domain.RiskTolerance(strings.ToLower(fields[n-1])); rt.IsValid() {
			req.RiskTolerance = rt
			fields = fields[:n-1]
		}
	}
	if len(fields) == 0 {
		return req, domain.ErrNoSymbols
	}

	withWeights := 0
	for _, f := range fields {
		sym, raw, hasWeight := strings.Cut(f, ":")
		req.Symbols = append(req.Symbols, sym)
		if !hasWeight {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return domain.PortfolioRequest{}, errPortfolioSyntax
		}
		req.Weights = append(req.Weights, w)
		withWeights++
	}

	if withWeights > 0 && withWeights != len(fields) {
		return domain.PortfolioRequest{}, domain.ErrWeightsMismatch
	}
	return req, nil
}

// ParseAlertArgs разбирает "AAPL above 150"
func ParseAlertArgs(args string) (symbol string, condition domain.AlertCondition, threshold float64, err error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "", "", 0, errAlertSyntax
	}
	threshold, err = strconv.ParseFloat(strings.TrimPrefix(fields[2], "$"), 64)
	if err != nil {
		return "", "", 0, errAlertSyntax
	}
	return fields[0], domain.AlertCondition(strings.ToLower(fields[1])), threshold, nil
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
