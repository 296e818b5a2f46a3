package domain

import (
	"fmt"
	"strings"
)

// CriticResult - вердикт ревьюера по отчету
type CriticResult struct {
	Approved    bool
	Issues      []string
	Suggestions []string
	// тикеры из запроса, о которых отчет молчит
	MissingSymbols []string
	Confidence     float64 // 0.0-1.0
}

type CriticConfig struct {
	MaxRetries int  // 0-10
	StrictMode bool // suggestions тоже требуют правки
	// одобрение с уверенностью ниже порога не принимается, 0 - без порога
	MinConfidence float64
}

// Normalize выкидывает пустые замечания и зажимает уверенность в [0, 1]
func (r *CriticResult) Normalize() {
	r.Issues = compactLines(r.Issues)
	r.Suggestions = compactLines(r.Suggestions)
	r.MissingSymbols = NormalizeSymbols(r.MissingSymbols)
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
}

func (r *CriticResult) HasCriticalIssues() bool {
	return len(r.Issues) > 0 || len(r.MissingSymbols) > 0
}

// NeedsRevision - нужна ли еще одна итерация правки при данных настройках
func (r *CriticResult) NeedsRevision(cfg CriticConfig) bool {
	if !r.Approved || r.HasCriticalIssues() {
		return true
	}
	if cfg.StrictMode && len(r.Suggestions) > 0 {
		return true
	}
	return cfg.MinConfidence > 0 && r.Confidence < cfg.MinConfidence
}

// Feedback - текст замечаний для редактора, не больше maxSuggestions советов
func (r *CriticResult) Feedback(maxSuggestions int) string {
	var sb strings.Builder

	if len(r.Issues) > 0 {
		sb.WriteString("Issues:\n")
		for i, issue := range r.Issues {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, issue)
		}
	}

	if len(r.MissingSymbols) > 0 {
		fmt.Fprintf(&sb, "The report does not cover: %s. Add a section for each.\n", strings.Join(r.MissingSymbols, ", "))
	}

	if len(r.Suggestions) > 0 && maxSuggestions > 0 {
		sb.WriteString("Suggestions:\n")
		for i, s := range r.Suggestions {
			if i >= maxSuggestions {
				break
			}
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}

	if sb.Len() == 0 && !r.Approved {
		sb.WriteString("The reviewer rejected the report without details. Re-check every figure against the inputs.\n")
	}
	return sb.String()
}

func (c *CriticConfig) Validate() error {
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.MaxRetries > 10 {
		return ErrMaxRetriesExceeded
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return ErrInvalidMinConfidence
	}
	return nil
}

func compactLines(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
