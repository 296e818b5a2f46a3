package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	llmMock "github.com/kitbuilder587/finanalyst/internal/llm/mock"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

func testReviewInput() ReviewInput {
	return ReviewInput{
		Question: "Is AAPL a buy?",
		Answer:   "AAPL trades at $190 with RSI 55 [S1].",
		Symbols:  []string{"AAPL"},
		Sources: []search.SearchResult{
			{Title: "Apple earnings beat", URL: "https://reuters.com/apple", Content: "Apple beat estimates"},
		},
		MarketDigest: "AAPL: price $190.00, RSI(14) 55.0",
	}
}

func TestCriticService_Review(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		in             func(ReviewInput) ReviewInput
		wantApproved   bool
		wantIssues     int
		wantMissing    []string
		wantConfidence float64
	}{
		{
			name:           "approved",
			response:       `{"approved": true, "issues": [], "confidence": 0.95}`,
			wantApproved:   true,
			wantConfidence: 0.95,
		},
		{
			name:           "rejected",
			response:       `{"approved": false, "issues": ["target price is not in the data"], "confidence": 0.8}`,
			wantApproved:   false,
			wantIssues:     1,
			wantConfidence: 0.8,
		},
		{
			name:           "json inside markdown fence",
			response:       "Review:\n```json\n{\"approved\": true, \"issues\": [\"  \"], \"confidence\": 1.4}\n```",
			wantApproved:   true,
			wantConfidence: 1,
		},
		{
			name:           "malformed json is approved with a parse issue",
			response:       "I think this report is good",
			wantApproved:   true,
			wantIssues:     1,
			wantConfidence: 0.3,
		},
		{
			name:     "symbol not mentioned in report",
			response: `{"approved": true, "issues": [], "confidence": 0.9}`,
			in: func(in ReviewInput) ReviewInput {
				in.Symbols = []string{"AAPL", "MSFT"}
				return in
			},
			wantApproved:   true,
			wantMissing:    []string{"MSFT"},
			wantConfidence: 0.9,
		},
		{
			name:     "missing symbols from model and local check are merged",
			response: `{"approved": false, "missing_symbols": ["nvda"], "confidence": 0.6}`,
			in: func(in ReviewInput) ReviewInput {
				in.Symbols = []string{"AAPL", "NVDA"}
				return in
			},
			wantApproved:   false,
			wantMissing:    []string{"NVDA"},
			wantConfidence: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCriticService(llmMock.New().WithResponse(tt.response), zap.NewNop(), domain.CriticConfig{MaxRetries: 2})
			in := testReviewInput()
			if tt.in != nil {
				in = tt.in(in)
			}

			result, err := svc.Review(context.Background(), in)
			if err != nil {
				t.Fatalf("Review() error = %v", err)
			}
			if result.Approved != tt.wantApproved {
				t.Errorf("Approved = %v, want %v", result.Approved, tt.wantApproved)
			}
			if len(result.Issues) != tt.wantIssues {
				t.Errorf("Issues = %q, want %d", result.Issues, tt.wantIssues)
			}
			if len(result.MissingSymbols) != len(tt.wantMissing) || (len(tt.wantMissing) > 0 && !reflect.DeepEqual(result.MissingSymbols, tt.wantMissing)) {
				t.Errorf("MissingSymbols = %v, want %v", result.MissingSymbols, tt.wantMissing)
			}
			if result.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestCriticService_ReviewErrors(t *testing.T) {
	svc := NewCriticService(llmMock.New().WithError(errors.New("LLM request failed")), nil, domain.CriticConfig{})
	if _, err := svc.Review(context.Background(), testReviewInput()); err == nil {
		t.Error("expected LLM error")
	}

	llmClient := llmMock.New()
	svc = NewCriticService(llmClient, nil, domain.CriticConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Review(ctx, testReviewInput()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if llmClient.Count() != 0 {
		t.Error("LLM should not be called with a canceled context")
	}
}

func TestCriticService_Prompt(t *testing.T) {
	llmClient := llmMock.New().WithResponse(`{"approved": true, "confidence": 0.9}`)
	svc := NewCriticService(llmClient, nil, domain.CriticConfig{MaxRetries: 1})

	in := testReviewInput()
	if _, err := svc.Review(context.Background(), in); err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	if !llmClient.HasCriticCall() {
		t.Fatal("expected critic system prompt")
	}
	prompt := llmClient.Calls()[0].Prompt
	for _, want := range []string{
		in.Question,
		in.Answer,
		"=== REQUESTED SYMBOLS ===\nAAPL",
		"[S1] Apple earnings beat (https://reuters.com/apple)",
		"=== MARKET DATA PROVIDED ===",
		in.MarketDigest,
		"=== SUCCESS CRITERIA ===",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestCriticService_PromptWithoutData(t *testing.T) {
	svc := NewCriticService(llmMock.New(), zap.NewNop(), domain.CriticConfig{})

	prompt := svc.buildPrompt(ReviewInput{Question: "question", Answer: "answer"})
	if strings.Contains(prompt, "MARKET DATA") {
		t.Error("market data section should be omitted when there is no digest")
	}
	if strings.Contains(prompt, "REQUESTED SYMBOLS") {
		t.Error("symbols section should be omitted when there are no symbols")
	}
	if !strings.Contains(prompt, "No sources provided.") {
		t.Error("prompt should mention missing sources")
	}
}

func TestCriticService_StrictPrompt(t *testing.T) {
	lenient := NewCriticService(llmMock.New(), nil, domain.CriticConfig{})
	strict := NewCriticService(llmMock.New(), nil, domain.CriticConfig{StrictMode: true})

	in := testReviewInput()
	if strings.Contains(lenient.buildPrompt(in), "partially met") {
		t.Error("lenient prompt should not demand full criteria")
	}
	if !strings.Contains(strict.buildPrompt(in), "partially met") {
		t.Error("strict prompt should demand full criteria")
	}
}

func TestUncoveredSymbols(t *testing.T) {
	tests := []struct {
		answer  string
		symbols []string
		want    []string
	}{
		{"AAPL and MSFT both look fine", []string{"AAPL", "MSFT"}, nil},
		{"AAPLX is a different ticker", []string{"AAPL"}, []string{"AAPL"}},
		{"Berkshire (BRK.B) is steady", []string{"BRK.B"}, nil},
		{"**NVDA:** strong momentum", []string{"NVDA", "AMD"}, []string{"AMD"}},
		{"", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got := uncoveredSymbols(tt.answer, tt.symbols)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("uncoveredSymbols() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"text before {\"a\": {\"b\": 2}} text after", `{"a": {"b": 2}}`},
		{"no json here", "no json here"},
		{`{"unclosed": 1`, `{"unclosed": 1`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
