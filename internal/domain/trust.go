package domain

import (
	"fmt"
	"strings"
)

// TrustLevel - насколько изданию можно верить в финансовых вопросах
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"   // агентства, регуляторы, биржи
	TrustMedium TrustLevel = "medium" // агрегаторы и аналитические порталы
	TrustLow    TrustLevel = "low"    // все остальное
)

func (t TrustLevel) IsValid() bool {
	switch t {
	case TrustHigh, TrustMedium, TrustLow:
		return true
	default:
		return false
	}
}

// Rank - порядок при сортировке выдачи, больше значит выше
func (t TrustLevel) Rank() int {
	switch t {
	case TrustHigh:
		return 2
	case TrustMedium:
		return 1
	default:
		return 0
	}
}

// ParseTrustLevel принимает значение в любом регистре, пустое считается low
func ParseTrustLevel(s string) (TrustLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TrustLow, nil
	}
	l := TrustLevel(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrustLevel, s)
	}
	return l, nil
}

func (t TrustLevel) String() string {
	return string(t)
}
