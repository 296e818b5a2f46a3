package llm

import (
	"context"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

// Instrumented - пишет метрики по каждому вызову модели
type Instrumented struct {
	next     Client
	provider string
	metrics  *metrics.Metrics
}

func NewInstrumented(next Client, provider string, m *metrics.Metrics) Client {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, provider: provider, metrics: m}
}

func (i *Instrumented) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	out, err := i.next.CompleteWithSystem(ctx, system, prompt)

	status := "success"
	if err != nil {
		status = "error"
	}
	i.metrics.RecordLLMRequest(i.provider, status, time.Since(start))
	return out, err
}
