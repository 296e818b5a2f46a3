package telegram

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

func TestParseAnalysisArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         string
		wantSymbols  []string
		wantQuestion string
	}{
		{
			name:         "symbols and question",
			args:         "AAPL MSFT | How do they compare?",
			wantSymbols:  []string{"AAPL", "MSFT"},
			wantQuestion: "How do they compare?",
		},
		{
			name:         "lowercase comma separated",
			args:         "aapl, msft,aapl | outlook",
			wantSymbols:  []string{"AAPL", "MSFT"},
			wantQuestion: "outlook",
		},
		{
			name:         "no separator",
			args:         "What moves the market today?",
			wantSymbols:  []string{},
			wantQuestion: "What moves the market today?",
		},
		{
			name:         "extra spaces",
			args:         "  TSLA  |   is   it   overbought  ",
			wantSymbols:  []string{"TSLA"},
			wantQuestion: "is it overbought",
		},
		{
			name:         "symbols without question",
			args:         "NVDA |",
			wantSymbols:  []string{"NVDA"},
			wantQuestion: "",
		},
		{
			name:         "empty",
			args:         "",
			wantSymbols:  []string{},
			wantQuestion: "",
		},
		{
			name:         "pipe inside question is kept",
			args:         "AAPL | buy | sell?",
			wantSymbols:  []string{"AAPL"},
			wantQuestion: "buy | sell?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbols, question := ParseAnalysisArgs(tt.args)
			if !reflect.DeepEqual(symbols, tt.wantSymbols) {
				t.Errorf("symbols = %v, want %v", symbols, tt.wantSymbols)
			}
			if question != tt.wantQuestion {
				t.Errorf("question = %q, want %q", question, tt.wantQuestion)
			}
		})
	}
}

func TestAnalysisTypeFor(t *testing.T) {
	tests := []struct {
		command string
		want    domain.AnalysisType
		wantOK  bool
	}{
		{"quick", domain.AnalysisQuick, true},
		{"analyze", domain.AnalysisComprehensive, true},
		{"technical", domain.AnalysisTechnical, true},
		{"RISK", domain.AnalysisRisk, true},
		{"sentiment", domain.AnalysisSentiment, true},
		{"portfolio", "", false},
		{"help", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, ok := analysisTypeFor(tt.command)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("analysisTypeFor(%q) = %v, %v, want %v, %v", tt.command, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParsePortfolioArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        string
		wantSymbols []string
		wantWeights []float64
		wantRisk    domain.RiskTolerance
		wantErr     error
	}{
		{
			name:        "weights and risk",
			args:        "AAPL:40 MSFT:60 conservative",
			wantSymbols: []string{"AAPL", "MSFT"},
			wantWeights: []float64{40, 60},
			wantRisk:    domain.RiskConservative,
		},
		{
			name:        "no weights",
			args:        "aapl msft googl",
			wantSymbols: []string{"aapl", "msft", "googl"},
		},
		{
			name:        "percent sign and commas",
			args:        "AAPL:50%, MSFT:50% Aggressive",
			wantSymbols: []string{"AAPL", "MSFT"},
			wantWeights: []float64{50, 50},
			wantRisk:    domain.RiskAggressive,
		},
		{
			name:    "partial weights",
			args:    "AAPL:40 MSFT",
			wantErr: domain.ErrWeightsMismatch,
		},
		{
			name:    "bad weight",
			args:    "AAPL:abc",
			wantErr: errPortfolioSyntax,
		},
		{
			name:    "only risk",
			args:    "moderate",
			wantErr: domain.ErrNoSymbols,
		},
		{
			name:    "empty",
			args:    "",
			wantErr: domain.ErrNoSymbols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParsePortfolioArgs(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(req.Symbols, tt.wantSymbols) {
				t.Errorf("Symbols = %v, want %v", req.Symbols, tt.wantSymbols)
			}
			if !reflect.DeepEqual(req.Weights, tt.wantWeights) {
				t.Errorf("Weights = %v, want %v", req.Weights, tt.wantWeights)
			}
			if req.RiskTolerance != tt.wantRisk {
				t.Errorf("RiskTolerance = %q, want %q", req.RiskTolerance, tt.wantRisk)
			}
		})
	}
}

func TestParseAlertArgs(t *testing.T) {
	tests := []struct {
		name          string
		args          string
		wantSymbol    string
		wantCondition domain.AlertCondition
		wantThreshold float64
		wantErr       bool
	}{
		{"above", "AAPL above 150", "AAPL", domain.ConditionAbove, 150, false},
		{"uppercase condition", "tsla BELOW 200.5", "tsla", domain.ConditionBelow, 200.5, false},
		{"dollar sign", "MSFT crosses $410", "MSFT", domain.ConditionCrosses, 410, false},
		{"missing price", "AAPL above", "", "", 0, true},
		{"bad price", "AAPL above lots", "", "", 0, true},
		{"too many fields", "AAPL above 150 now", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, cond, thr, err := ParseAlertArgs(tt.args)
			if tt.wantErr {
				if !errors.Is(err, errAlertSyntax) {
					t.Errorf("error = %v, want errAlertSyntax", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sym != tt.wantSymbol || cond != tt.wantCondition || thr != tt.wantThreshold {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", sym, cond, thr, tt.wantSymbol, tt.wantCondition, tt.wantThreshold)
			}
		})
	}
}
