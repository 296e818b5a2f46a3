package domain

import (
	"errors"
	"testing"
)

func TestTrustLevel_IsValid(t *testing.T) {
	tests := []struct {
		level TrustLevel
		want  bool
	}{
		{TrustHigh, true},
		{TrustMedium, true},
		{TrustLow, true},
		{"", false},
		{"HIGH", false},
		{"verified", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.IsValid(); got != tt.want {
				t.Errorf("TrustLevel(%q).IsValid() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestTrustLevel_Rank(t *testing.T) {
	if !(TrustHigh.Rank() > TrustMedium.Rank() && TrustMedium.Rank() > TrustLow.Rank()) {
		t.Errorf("ranks out of order: high=%d medium=%d low=%d", TrustHigh.Rank(), TrustMedium.Rank(), TrustLow.Rank())
	}
	if got := TrustLevel("unknown").Rank(); got != TrustLow.Rank() {
		t.Errorf("unknown level rank = %d, want %d", got, TrustLow.Rank())
	}
}

func TestParseTrustLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    TrustLevel
		wantErr bool
	}{
		{"high", TrustHigh, false},
		{" Medium ", TrustMedium, false},
		{"LOW", TrustLow, false},
		{"", TrustLow, false},
		{"sketchy", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTrustLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTrustLevel) {
					t.Errorf("ParseTrustLevel(%q) error = %v, want ErrInvalidTrustLevel", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTrustLevel(%q) unexpected error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTrustLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
