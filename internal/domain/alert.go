package domain

import (
	"strings"
	"time"
)

type AlertCondition string

const (
	ConditionAbove   AlertCondition = "above"
	ConditionBelow   AlertCondition = "below"
	ConditionCrosses AlertCondition = "crosses"
)

func (c AlertCondition) IsValid() bool {
	switch c {
	case ConditionAbove, ConditionBelow, ConditionCrosses:
		return true
	}
	return false
}

func (c AlertCondition) String() string { return string(c) }

type Alert struct {
	ID          string
	Symbol      string
	Condition   AlertCondition
	Threshold   float64
	Created     time.Time
	Active      bool
	TriggeredAt *time.Time
	LastPrice   float64
}

func (a *Alert) Normalize() {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	a.Condition = AlertCondition(strings.ToLower(strings.TrimSpace(string(a.Condition))))
}

func (a *Alert) Validate() error {
	if err := ValidateSymbols([]string{a.Symbol}); err != nil || a.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !a.Condition.IsValid() {
		return ErrInvalidCondition
	}
	if a.Threshold <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}

// Evaluate - сработал ли алерт при переходе цены prev -> cur.
// prev == 0 значит предыдущей цены нет, crosses в этом случае не срабатывает.
func (a *Alert) Evaluate(prev, cur float64) bool {
	if cur <= 0 {
		return false
	}
	switch a.Condition {
	case ConditionAbove:
		return cur >= a.Threshold
	case ConditionBelow:
		return cur <= a.Threshold
	case ConditionCrosses:
		if prev <= 0 {
			return false
		}
		if prev < a.Threshold && cur >= a.Threshold {
			return true
		}
		if prev > a.Threshold && cur <= a.Threshold {
			return true
		}
	}
	return false
}
