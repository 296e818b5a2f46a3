package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCriticResult_Normalize(t *testing.T) {
	r := CriticResult{
		Issues:         []string{"  ", "price for MSFT is not in the data", ""},
		Suggestions:    []string{"add RSI"},
		MissingSymbols: []string{"msft", "MSFT", " "},
		Confidence:     1.7,
	}
	r.Normalize()

	if len(r.Issues) != 1 || r.Issues[0] != "price for MSFT is not in the data" {
		t.Errorf("Issues = %q", r.Issues)
	}
	if len(r.MissingSymbols) != 1 || r.MissingSymbols[0] != "MSFT" {
		t.Errorf("MissingSymbols = %q", r.MissingSymbols)
	}
	if r.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", r.Confidence)
	}

	r.Confidence = -0.2
	r.Normalize()
	if r.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", r.Confidence)
	}
}

func TestCriticResult_HasCriticalIssues(t *testing.T) {
	tests := []struct {
		name   string
		result CriticResult
		want   bool
	}{
		{"clean", CriticResult{Approved: true}, false},
		{"only suggestions", CriticResult{Approved: true, Suggestions: []string{"add a chart"}}, false},
		{"issues", CriticResult{Issues: []string{"P/E ratio is invented"}}, true},
		{"missing symbol", CriticResult{Approved: true, MissingSymbols: []string{"NVDA"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.HasCriticalIssues(); got != tt.want {
				t.Errorf("HasCriticalIssues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriticResult_NeedsRevision(t *testing.T) {
	tests := []struct {
		name   string
		result CriticResult
		cfg    CriticConfig
		want   bool
	}{
		{
			name:   "approved without remarks",
			result: CriticResult{Approved: true, Confidence: 0.9},
			want:   false,
		},
		{
			name:   "rejected",
			result: CriticResult{Approved: false, Confidence: 0.9},
			want:   true,
		},
		{
			name:   "approved with issues",
			result: CriticResult{Approved: true, Issues: []string{"no risk section"}},
			want:   true,
		},
		{
			name:   "suggestions in lenient mode",
			result: CriticResult{Approved: true, Suggestions: []string{"mention volume"}},
			want:   false,
		},
		{
			name:   "suggestions in strict mode",
			result: CriticResult{Approved: true, Suggestions: []string{"mention volume"}},
			cfg:    CriticConfig{StrictMode: true},
			want:   true,
		},
		{
			name:   "below min confidence",
			result: CriticResult{Approved: true, Confidence: 0.4},
			cfg:    CriticConfig{MinConfidence: 0.6},
			want:   true,
		},
		{
			name:   "at min confidence",
			result: CriticResult{Approved: true, Confidence: 0.6},
			cfg:    CriticConfig{MinConfidence: 0.6},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.NeedsRevision(tt.cfg); got != tt.want {
				t.Errorf("NeedsRevision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriticResult_Feedback(t *testing.T) {
	r := CriticResult{
		Issues:         []string{"target price not sourced", "no downside scenario"},
		Suggestions:    []string{"one", "two", "three", "four"},
		MissingSymbols: []string{"AMD"},
	}

	got := r.Feedback(3)
	for _, want := range []string{"1. target price not sourced", "2. no downside scenario", "does not cover: AMD", "- three"} {
		if !strings.Contains(got, want) {
			t.Errorf("Feedback() should contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "- four") {
		t.Error("Feedback() should cap suggestions")
	}

	empty := CriticResult{Approved: false}
	if got := empty.Feedback(3); !strings.Contains(got, "rejected the report") {
		t.Errorf("Feedback() for bare rejection = %q", got)
	}
	approved := CriticResult{Approved: true}
	if got := approved.Feedback(3); got != "" {
		t.Errorf("Feedback() for clean approval = %q, want empty", got)
	}
}

func TestCriticConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CriticConfig
		wantErr error
	}{
		{"zero retries", CriticConfig{MaxRetries: 0}, nil},
		{"ten retries", CriticConfig{MaxRetries: 10}, nil},
		{"negative retries", CriticConfig{MaxRetries: -1}, ErrInvalidMaxRetries},
		{"too many retries", CriticConfig{MaxRetries: 11}, ErrMaxRetriesExceeded},
		{"valid min confidence", CriticConfig{MaxRetries: 2, MinConfidence: 0.7}, nil},
		{"min confidence above one", CriticConfig{MaxRetries: 2, MinConfidence: 1.5}, ErrInvalidMinConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
