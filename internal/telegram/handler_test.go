package telegram

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/kitbuilder587/finanalyst/internal/backend"
	"github.com/kitbuilder587/finanalyst/internal/domain"
)

func TestMapErrorToMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty", domain.ErrEmptyQuestion, "Empty question. Please type what you want to know."},
		{"bad symbol", domain.ErrInvalidSymbol, "Invalid ticker symbol. Use symbols like AAPL or BRK.B."},
		{"not configured", domain.ErrLLMNotConfigured, "The analysis service is not configured yet (missing API key)."},
		{"timeout", domain.ErrAnalysisTimeout, "The analysis took too long. Please try again with fewer symbols."},
		{"alert exists", domain.ErrAlertExists, "This alert already exists."},
		{"alert not found", domain.ErrAlertNotFound, "Alert not found."},
		{"backend down", fmt.Errorf("%w: connection refused", backend.ErrBackendUnavailable), "The analysis service is unavailable. Please try again later."},
		{"backend timeout", backend.ErrBackendTimeout, "The analysis service did not respond in time. Please try again later."},
		{"backend 503", &backend.Error{Status: 503, Message: "OpenAI API key not configured"}, "The analysis service is not configured yet (missing API key)."},
		{"backend 400", &backend.Error{Status: 400, Message: "invalid timeframe"}, "Invalid request: invalid timeframe"},
		{"unknown", errors.New("some random error"), "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErrorToMessage(tt.err)
			if got != tt.want {
				t.Errorf("mapErrorToMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorToMessage_WrappedErrors(t *testing.T) {
	wrappedErr := fmt.Errorf("analyze: %w", domain.ErrNoMarketData)
	got := mapErrorToMessage(wrappedErr)
	want := "Could not load market data for these symbols."
	if got != want {
		t.Errorf("mapErrorToMessage(wrapped) = %v, want %v", got, want)
	}
}

func TestHandler_AnalysisCommands(t *testing.T) {
	tests := []struct {
		text         string
		wantType     domain.AnalysisType
		wantSymbols  []string
		wantQuestion string
	}{
		{"/quick AAPL | price today?", domain.AnalysisQuick, []string{"AAPL"}, "price today?"},
		{"/analyze NVDA AMD | compare", domain.AnalysisComprehensive, []string{"NVDA", "AMD"}, "compare"},
		{"/technical tsla | trend?", domain.AnalysisTechnical, []string{"TSLA"}, "trend?"},
		{"/risk SPY | drawdown risk", domain.AnalysisRisk, []string{"SPY"}, "drawdown risk"},
		{"/sentiment | what is the mood on Wall Street", domain.AnalysisSentiment, []string{}, "what is the mood on Wall Street"},
		{"What moves the market?", DefaultAnalysisType, []string{}, "What moves the market?"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			b := NewMockBackend()
			bot, sender := createTestBot(t, b, 100, nil)

			bot.handler.HandleMessage(context.Background(), createTestMessage(123, tt.text))

			if len(b.Requests) != 1 {
				t.Fatalf("Analyze calls = %d, want 1", len(b.Requests))
			}
			req := b.Requests[0]
			if req.AnalysisType != tt.wantType {
				t.Errorf("AnalysisType = %v, want %v", req.AnalysisType, tt.wantType)
			}
			if !reflect.DeepEqual(req.Symbols, tt.wantSymbols) {
				t.Errorf("Symbols = %v, want %v", req.Symbols, tt.wantSymbols)
			}
			if req.Question != tt.wantQuestion {
				t.Errorf("Question = %q, want %q", req.Question, tt.wantQuestion)
			}
			if !strings.Contains(sender.Last(), "Mock response") {
				t.Errorf("reply = %q, want analysis text", sender.Last())
			}
		})
	}
}

func TestHandler_AnalysisWithoutQuestion(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 100, nil)

	bot.handler.HandleMessage(context.Background(), createTestMessage(123, "/technical AAPL |"))

	if len(b.Requests) != 0 {
		t.Errorf("Analyze calls = %d, want 0", len(b.Requests))
	}
	if !strings.Contains(sender.Last(), "/technical AAPL | What is the outlook?") {
		t.Errorf("reply = %q, want usage hint", sender.Last())
	}
}

func TestHandler_AnalysisError(t *testing.T) {
	b := NewMockBackend()
	b.Err = domain.ErrLLMNotConfigured
	bot, sender := createTestBot(t, b, 100, nil)

	bot.handler.HandleMessage(context.Background(), createTestMessage(123, "/quick AAPL | price?"))

	if got := sender.Last(); got != mapErrorToMessage(domain.ErrLLMNotConfigured) {
		t.Errorf("reply = %q", got)
	}
}

func TestHandler_RateLimitPerChat(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 2, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		bot.handler.HandleMessage(ctx, createTestMessage(1, "question"))
	}
	if len(b.Requests) != 2 {
		t.Errorf("Analyze calls = %d, want 2", len(b.Requests))
	}
	if !strings.HasPrefix(sender.Last(), "Too many requests") {
		t.Errorf("reply = %q, want rate limit message", sender.Last())
	}

	// у другого чата свой лимит
	bot.handler.HandleMessage(ctx, createTestMessage(2, "question"))
	if len(b.Requests) != 3 {
		t.Errorf("Analyze calls = %d, want 3", len(b.Requests))
	}
}

func TestHandler_Portfolio(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 100, nil)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/portfolio AAPL:40 MSFT:60 conservative"))

	if len(b.PortfolioRequests) != 1 {
		t.Fatalf("AnalyzePortfolio calls = %d, want 1", len(b.PortfolioRequests))
	}
	req := b.PortfolioRequests[0]
	if req.RiskTolerance != domain.RiskConservative {
		t.Errorf("RiskTolerance = %v, want conservative", req.RiskTolerance)
	}
	if !reflect.DeepEqual(req.Weights, []float64{40, 60}) {
		t.Errorf("Weights = %v", req.Weights)
	}
	if !strings.Contains(sender.Last(), "<b>Portfolio Analysis</b>") {
		t.Errorf("reply = %q", sender.Last())
	}
}

func TestHandler_PortfolioUsage(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 100, nil)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/portfolio"))

	if len(b.PortfolioRequests) != 0 {
		t.Error("backend should not be called without symbols")
	}
	if !strings.HasPrefix(sender.Last(), "Usage: /portfolio") {
		t.Errorf("reply = %q", sender.Last())
	}

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/portfolio AAPL:40 MSFT"))
	if got := sender.Last(); got != mapErrorToMessage(domain.ErrWeightsMismatch) {
		t.Errorf("reply = %q", got)
	}
}

func TestHandler_AlertLifecycle(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 100, nil)
	ctx := context.Background()

	bot.handler.HandleMessage(ctx, createTestMessage(7, "/alert aapl above 150"))
	if !strings.HasPrefix(sender.Last(), "Alert created.") {
		t.Fatalf("reply = %q", sender.Last())
	}
	if len(b.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(b.alerts))
	}
	var id string
	for k := range b.alerts {
		id = k
	}
	if owner := bot.alertOwners[id]; owner != 7 {
		t.Errorf("alert owner = %d, want 7", owner)
	}

	bot.handler.HandleMessage(ctx, createTestMessage(7, "/alerts"))
	if !strings.Contains(sender.Last(), "AAPL above 150.00") {
		t.Errorf("alerts reply = %q", sender.Last())
	}

	bot.handler.HandleMessage(ctx, createTestMessage(7, "/unalert "+id))
	if sender.Last() != "Alert deleted." {
		t.Errorf("unalert reply = %q", sender.Last())
	}
	if _, ok := bot.alertOwners[id]; ok {
		t.Error("owner should be forgotten after delete")
	}

	bot.handler.HandleMessage(ctx, createTestMessage(7, "/unalert "+id))
	if sender.Last() != "Alert not found." {
		t.Errorf("second unalert reply = %q", sender.Last())
	}
}

func TestHandler_AlertValidation(t *testing.T) {
	b := NewMockBackend()
	bot, sender := createTestBot(t, b, 100, nil)
	ctx := context.Background()

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/alert AAPL"))
	if !strings.HasPrefix(sender.Last(), "Usage: /alert") {
		t.Errorf("reply = %q", sender.Last())
	}

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/alert AAPL sideways 150"))
	if got := sender.Last(); got != mapErrorToMessage(domain.ErrInvalidCondition) {
		t.Errorf("reply = %q", got)
	}
}

func TestHandler_HistoryAndStatus(t *testing.T) {
	b := NewMockBackend()
	var gotLimit int
	b.HistoryFunc = func(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
		gotLimit = limit
		return []domain.QueryRecord{{ID: 3, Question: "Is AAPL cheap?", AnalysisType: domain.AnalysisQuick}}, nil
	}
	bot, sender := createTestBot(t, b, 100, nil)
	ctx := context.Background()

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/history"))
	if gotLimit != historyLimit {
		t.Errorf("limit = %d, want %d", gotLimit, historyLimit)
	}
	if !strings.Contains(sender.Last(), "Is AAPL cheap?") {
		t.Errorf("history reply = %q", sender.Last())
	}

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/status"))
	if !strings.Contains(sender.Last(), "<b>Status:</b> healthy") {
		t.Errorf("status reply = %q", sender.Last())
	}
}

func TestHandler_StartHelpUnknown(t *testing.T) {
	bot, sender := createTestBot(t, NewMockBackend(), 100, nil)
	ctx := context.Background()

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/start"))
	if !strings.Contains(sender.Last(), "Financial Analyst") {
		t.Errorf("start reply = %q", sender.Last())
	}

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/help"))
	for _, cmd := range []string{"/quick", "/analyze", "/portfolio", "/alert ", "/unalert", "/status"} {
		if !strings.Contains(sender.Last(), cmd) {
			t.Errorf("help should mention %s", cmd)
		}
	}

	bot.handler.HandleMessage(ctx, createTestMessage(1, "/deep something"))
	if !strings.HasPrefix(sender.Last(), "Unknown command") {
		t.Errorf("unknown reply = %q", sender.Last())
	}
}
