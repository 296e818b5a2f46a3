package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

func TestMarkdownToHTML(t *testing.T) {
	md := "# Technical Analysis\n\n**Trend:** Bullish\nRSI < 30 & falling"
	got := markdownToHTML(md)

	if !strings.Contains(got, "<b>Technical Analysis</b>") {
		t.Errorf("heading not converted: %q", got)
	}
	if !strings.Contains(got, "<b>Trend:</b> Bullish") {
		t.Errorf("bold not converted: %q", got)
	}
	if !strings.Contains(got, "RSI &lt; 30 &amp; falling") {
		t.Errorf("text not escaped: %q", got)
	}
}

func TestFormatQueryResponse(t *testing.T) {
	resp := &domain.QueryResponse{
		Response: "This is the answer with [S1] reference.",
		Metadata: domain.QueryMetadata{
			AnalysisType:    domain.AnalysisTechnical,
			SymbolsAnalyzed: []string{"AAPL", "MSFT"},
			Offline:         true,
			Warnings:        []string{"sentiment agent failed"},
			Sources: []domain.SourceRef{
				{
					Marker:     "[S1]",
					Title:      "Source Title",
					URL:        "https://reuters.com/article",
					TrustLevel: domain.TrustHigh,
				},
			},
		},
	}

	result := FormatQueryResponse(resp)

	for _, want := range []string{
		"Technical analysis · AAPL, MSFT",
		"Offline mode",
		"This is the answer",
		"Warnings:",
		"sentiment agent failed",
		"Sources:",
		"[S1] ●",
		`<a href="https://reuters.com/article">`,
	} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatQueryResponse() should contain %q, got:\n%s", want, result)
		}
	}
}

func TestFormatQueryResponse_NoSources(t *testing.T) {
	resp := &domain.QueryResponse{
		Response: "Answer",
		Metadata: domain.QueryMetadata{AnalysisType: domain.AnalysisQuick},
	}

	result := FormatQueryResponse(resp)
	if strings.Contains(result, "Sources:") {
		t.Error("sources section should be omitted when there are no sources")
	}
	if strings.Contains(result, "Offline") {
		t.Error("offline note should be omitted for online answers")
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); got != "No analysis history yet." {
		t.Errorf("FormatHistory(nil) = %q", got)
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []domain.QueryRecord{
		{ID: 1, Timestamp: ts, Question: "older", AnalysisType: domain.AnalysisQuick},
		{ID: 2, Timestamp: ts, Question: "newer <script>", AnalysisType: domain.AnalysisRisk, Symbols: []string{"TSLA"}},
	}
	got := FormatHistory(recs)

	if strings.Index(got, "#2") > strings.Index(got, "#1") {
		t.Error("newest record should be listed first")
	}
	if !strings.Contains(got, "[TSLA]") {
		t.Error("symbols should be listed")
	}
	if strings.Contains(got, "<script>") {
		t.Error("question should be escaped")
	}
	if !strings.Contains(got, "Total: 2") {
		t.Error("should contain total count")
	}
}

func TestFormatAlerts(t *testing.T) {
	if got := FormatAlerts(nil); !strings.Contains(got, "/alert AAPL above 150") {
		t.Errorf("empty alerts should show usage, got %q", got)
	}

	at := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	alerts := []domain.Alert{
		{ID: "a1", Symbol: "AAPL", Condition: domain.ConditionAbove, Threshold: 150, Active: true, LastPrice: 148.2},
		{ID: "a2", Symbol: "TSLA", Condition: domain.ConditionBelow, Threshold: 200, TriggeredAt: &at},
	}
	got := FormatAlerts(alerts)

	for _, want := range []string{"AAPL above 150.00", "● active", "last $148.20", "○ triggered 2024-03-02 09:30", "<code>a2</code>", "Total: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatAlerts() should contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatAlertTriggered(t *testing.T) {
	got := FormatAlertTriggered(domain.Alert{Symbol: "AAPL", Condition: domain.ConditionCrosses, Threshold: 150, LastPrice: 151.25})
	if !strings.Contains(got, "AAPL is now $151.25 (crosses 150.00)") {
		t.Errorf("FormatAlertTriggered() = %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	got := FormatStatus(&service.Status{
		Status:           "degraded",
		Version:          "2.0",
		AgentsConfigured: 6,
		LLMProvider:      "openai",
		Uptime:           90*time.Second + 300*time.Millisecond,
	})

	for _, want := range []string{"degraded", "Agents: 6 (ready: no)", "API key configured: no", "Uptime: 1m30s"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatStatus() should contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatPortfolio(t *testing.T) {
	got := FormatPortfolio(&domain.PortfolioResult{
		Analysis: "# Portfolio Analysis - Moderate Risk Profile",
		Holdings: []domain.Holding{{Symbol: "AAPL", Weight: 0.4, Price: 190.5}},
		Offline:  true,
	})

	for _, want := range []string{"<b>Portfolio Analysis - Moderate Risk Profile</b>", "AAPL 40.0% @ $190.50", "Offline mode"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatPortfolio() should contain %q, got:\n%s", want, got)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_TelegramLimit(t *testing.T) {
	text := strings.Repeat("Market update line with numbers 123.45\n", 400)

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	if strings.Join(parts, "") != text {
		t.Error("parts should reassemble to the original text")
	}
	for i, p := range parts {
		if len(p) > maxMessageLen {
			t.Errorf("part %d has %d bytes, limit %d", i, len(p), maxMessageLen)
		}
	}
}

func TestSplitMessage_NoSpacesKeepsRunes(t *testing.T) {
	text := strings.Repeat("ü", 30)

	parts := SplitMessage(text, 15)
	for i, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %d is not valid UTF-8: %q", i, p)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts should reassemble to the original text")
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "link tag",
			text: `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
		},
		{
			name: "bold tag",
			text: `Some text <b>bold text here</b> more text`,
		},
		{
			name: "multiple tags",
			text: `<b>Title</b>\n<a href="https://example.com">Link</a>\nMore text here`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, 30)

			for i, part := range parts {
				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},
		{`<a href="url">text</a>`, 15, false},
		{`text <b>bold</b>`, 0, false},
		{`text <b>bold</b>`, 6, true},
		{`text <b>bold</b>`, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}

func TestTruncateURL(t *testing.T) {
	tests := []struct {
		url    string
		maxLen int
		want   string
	}{
		{"https://example.com", 50, "https://example.com"},
		{"https://example.com/very/long/path", 20, "https://example.c..."},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := truncateURL(tt.url, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
