package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// лимит телеграма на одно сообщение
const maxMessageLen = 4096

var boldRe = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)

// markdownToHTML - заголовки и **жирный** из отчетов в HTML телеграма, остальное экранируется
func markdownToHTML(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			lines[i] = "<b>" + html.EscapeString(strings.ReplaceAll(title, "**", "")) + "</b>"
			continue
		}
		escaped := html.EscapeString(line)
		lines[i] = boldRe.ReplaceAllString(escaped, "<b>$1</b>")
	}
	return strings.Join(lines, "\n")
}

func FormatQueryResponse(resp *domain.QueryResponse) string {
	var sb strings.Builder
	m := resp.Metadata

	header := m.AnalysisType.Title() + " analysis"
	if len(m.SymbolsAnalyzed) > 0 {
		header += " · " + strings.Join(m.SymbolsAnalyzed, ", ")
	}
	sb.WriteString("<i>" + html.EscapeString(header) + "</i>\n")
	if m.Offline {
		sb.WriteString("<i>Offline mode: computed from market data without LLM</i>\n")
	}
	sb.WriteString("\n")
	sb.WriteString(markdownToHTML(resp.Response))

	if len(m.Warnings) > 0 {
		sb.WriteString("\n\n<b>Warnings:</b>\n")
		for _, w := range m.Warnings {
			sb.WriteString("• " + html.EscapeString(w) + "\n")
		}
	}

	if len(m.Sources) > 0 {
		sb.WriteString("\n\n━━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("<b>Sources:</b>\n")

		for _, src := range m.Sources {
			escapedURL := html.EscapeString(src.URL)
			sb.WriteString(fmt.Sprintf("%s %s %s\n   <a href=\"%s\">%s</a> [%s]\n",
				src.Marker,
				getTrustIcon(src.TrustLevel),
				html.EscapeString(src.Title),
				escapedURL,
				html.EscapeString(truncateURL(src.URL, 50)),
				src.TrustLevel,
			))
		}
	}

	return sb.String()
}

func FormatPortfolio(res *domain.PortfolioResult) string {
	var sb strings.Builder
	sb.WriteString(markdownToHTML(res.Analysis))

	if len(res.Holdings) > 0 {
		sb.WriteString("\n\n<b>Holdings:</b>\n")
		for _, h := range res.Holdings {
			sb.WriteString(fmt.Sprintf("• %s %.1f%% @ $%.2f\n", html.EscapeString(h.Symbol), h.Weight*100, h.Price))
		}
	}
	if res.Offline {
		sb.WriteString("\n<i>Offline mode: computed from market data without LLM</i>")
	}
	return sb.String()
}

func FormatHistory(recs []domain.QueryRecord) string {
	if len(recs) == 0 {
		return "No analysis history yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>Recent analyses:</b>\n\n")
	// самые новые сверху
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		sb.WriteString(fmt.Sprintf("#%d %s <i>%s</i>", r.ID, r.Timestamp.Format("2006-01-02 15:04"), html.EscapeString(string(r.AnalysisType))))
		if len(r.Symbols) > 0 {
			sb.WriteString(" [" + html.EscapeString(strings.Join(r.Symbols, ", ")) + "]")
		}
		sb.WriteString("\n" + html.EscapeString(truncateText(r.Question, 120)) + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("Total: %d", len(recs)))
	return sb.String()
}

func FormatAlerts(alerts []domain.Alert) string {
	if len(alerts) == 0 {
		return "No alerts. Create one with /alert AAPL above 150"
	}

	var sb strings.Builder
	sb.WriteString("<b>Your alerts:</b>\n\n")
	for _, a := range alerts {
		sb.WriteString(FormatAlert(a) + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("Total: %d", len(alerts)))
	return sb.String()
}

func FormatAlert(a domain.Alert) string {
	state := "● active"
	if !a.Active {
		state = "○ triggered"
		if a.TriggeredAt != nil {
			state += " " + a.TriggeredAt.Format("2006-01-02 15:04")
		}
	}
	line := fmt.Sprintf("%s %s %.2f  %s\n   <code>%s</code>",
		html.EscapeString(a.Symbol),
		a.Condition,
		a.Threshold,
		state,
		html.EscapeString(a.ID),
	)
	if a.LastPrice > 0 {
		line += fmt.Sprintf(" last $%.2f", a.LastPrice)
	}
	return line
}

func FormatAlertTriggered(a domain.Alert) string {
	return fmt.Sprintf("🔔 <b>Alert triggered</b>\n%s is now $%.2f (%s %.2f)",
		html.EscapeString(a.Symbol),
		a.LastPrice,
		a.Condition,
		a.Threshold,
	)
}

func FormatStatus(st *service.Status) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Status:</b> %s\n", html.EscapeString(st.Status)))
	if st.Version != "" {
		sb.WriteString(fmt.Sprintf("Version: %s\n", html.EscapeString(st.Version)))
	}
	sb.WriteString(fmt.Sprintf("Agents: %d (ready: %s)\n", st.AgentsConfigured, yesNo(st.AgentsReady)))
	sb.WriteString(fmt.Sprintf("LLM provider: %s\n", html.EscapeString(st.LLMProvider)))
	sb.WriteString(fmt.Sprintf("API key configured: %s\n", yesNo(st.APIKeyConfigured)))
	if st.Offline {
		sb.WriteString("Mode: offline\n")
	}
	sb.WriteString(fmt.Sprintf("Uptime: %s", st.Uptime.Truncate(time.Second)))
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем перевод строки или пробел, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	// без пробелов режем по границе руны
	for i := maxLen; i > 0; i-- {
		if isRuneStart(text[i]) {
			return i
		}
	}
	return maxLen
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func getTrustIcon(level domain.TrustLevel) string {
	switch level {
	case domain.TrustHigh:
		return "●"
	case domain.TrustMedium:
		return "◐"
	default:
		return "○"
	}
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

func truncateText(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-1]) + "…"
}
