package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
)

var ErrNoAgentResponses = domain.ErrNoAgentResponses

const agentTimeoutRatio = 0.8

type CoordinatorResponse struct {
	FinalAnswer    string
	AgentResponses []AgentResponse
	AgentsUsed     []string
	AgentsFailed   []string
	Synthesized    bool
	ProcessingTime time.Duration
}

// Coordinator - Financial Intelligence Hub: запускает агентов профиля параллельно и сводит ответы
type Coordinator struct {
	agents        []Agent
	llm           llm.Client
	logger        *zap.Logger
	metrics       *metrics.Metrics
	minConfidence float64
}

func NewCoordinator(agents []Agent, llmClient llm.Client, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		agents:        agents,
		llm:           llmClient,
		logger:        logger,
		minConfidence: 0.3,
	}
}

func (c *Coordinator) WithMetrics(m *metrics.Metrics) *Coordinator {
	c.metrics = m
	return c
}

func (c *Coordinator) Agents() []Agent { return c.agents }

func (c *Coordinator) Process(ctx context.Context, req AgentRequest, profile domain.Profile) (*CoordinatorResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	selected := c.selectAgents(req.Question, profile)

	c.logger.Info("Selected agents",
		zap.Int("count", len(selected)),
		zap.String("analysis_type", string(profile.Type)),
	)

	responses, failed, fatalErr := c.runParallel(ctx, selected, req, agentTimeout(profile))
	if len(responses) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// ключ не принят или кончилась квота: вызывающий не должен подменять ответ офлайн-отчетом
		if fatalErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoAgentResponses, fatalErr)
		}
		return nil, ErrNoAgentResponses
	}

	names := make([]string, len(responses))
	for i, r := range responses {
		names[i] = r.AgentName
	}

	out := &CoordinatorResponse{
		AgentResponses: responses,
		AgentsUsed:     names,
		AgentsFailed:   failed,
	}

	switch {
	case len(responses) == 1:
		// один ответ отдаем как есть, синтез не нужен
		out.FinalAnswer = responses[0].Content
	case profile.Synthesize:
		answer, err := c.synthesize(ctx, responses, req)
		if err != nil {
			return nil, fmt.Errorf("synthesis failed: %w", err)
		}
		out.FinalAnswer = answer
		out.Synthesized = true
	default:
		out.FinalAnswer = concatenate(responses, c.agents)
	}

	out.ProcessingTime = time.Since(start)
	return out, nil
}

func agentTimeout(p domain.Profile) time.Duration {
	if p.Timeout <= 0 {
		return 0
	}
	return time.Duration(float64(p.Timeout) * agentTimeoutRatio)
}

// selectAgents - сначала ростер профиля по порядку, свободные места добираем по релевантности вопросу
func (c *Coordinator) selectAgents(question string, profile domain.Profile) []Agent {
	if len(c.agents) == 0 {
		return nil
	}

	maxAgents := profile.MaxAgents
	if maxAgents <= 0 {
		maxAgents = len(profile.Agents)
	}
	if maxAgents <= 0 {
		maxAgents = 1
	}

	var result []Agent
	picked := make(map[string]bool)
	for _, name := range profile.Agents {
		if len(result) >= maxAgents {
			break
		}
		if a, ok := Find(c.agents, name); ok && !picked[name] {
			result = append(result, a)
			picked[name] = true
		}
	}

	if len(result) < maxAgents {
		type scored struct {
			a     Agent
			score float64
		}
		var extra []scored
		for _, a := range c.agents {
			if picked[a.Name()] {
				continue
			}
			if s := a.CanHandle(question); s >= c.minConfidence {
				extra = append(extra, scored{a, s})
			}
		}
		sort.SliceStable(extra, func(i, j int) bool {
			return extra[i].score > extra[j].score
		})
		for _, s := range extra {
			if len(result) >= maxAgents {
				break
			}
			result = append(result, s.a)
		}
	}

	// ростер пуст и по словам никто не подошел - берем первых по порядку
	if len(result) == 0 {
		n := maxAgents
		if n > len(c.agents) {
			n = len(c.agents)
		}
		result = append(result, c.agents[:n]...)
	}

	return result
}

// runParallel - ответы в порядке agents, упавшие агенты возвращаются отдельно.
// Третий результат - первая ошибка провайдера из llm.Fatal, если такая была
func (c *Coordinator) runParallel(ctx context.Context, agents []Agent, req AgentRequest, timeout time.Duration) ([]AgentResponse, []string, error) {
	if len(agents) == 0 {
		return nil, nil, nil
	}

	results := make([]*AgentResponse, len(agents))
	errs := make([]error, len(agents))
	var wg sync.WaitGroup

	for i, a := range agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()

			actx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			resp, err := agent.Process(actx, req)
			if err == nil {
				err = resp.Validate()
			}
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					c.logger.Warn("agent timed out", zap.String("agent", agent.Name()), zap.Duration("timeout", timeout))
				} else {
					c.logger.Warn("agent failed", zap.String("agent", agent.Name()), zap.Error(err))
				}
				if c.metrics != nil {
					c.metrics.RecordAgentFailure(agent.Name())
				}
				errs[i] = err
				return
			}
			results[i] = resp
		}(i, a)
	}

	wg.Wait()

	var (
		ok       []AgentResponse
		failed   []string
		fatalErr error
	)
	for i, r := range results {
		if r == nil {
			failed = append(failed, agents[i].Name())
			if fatalErr == nil && llm.Fatal(errs[i]) {
				fatalErr = errs[i]
			}
			continue
		}
		ok = append(ok, *r)
	}
	return ok, failed, fatalErr
}

func (c *Coordinator) synthesize(ctx context.Context, responses []AgentResponse, req AgentRequest) (string, error) {
	var buf strings.Builder
	buf.WriteString(AnalysisPrompt(req))
	buf.WriteString("\nSpecialist reports:\n\n")
	for i, r := range responses {
		fmt.Fprintf(&buf, "[Specialist %d: %s]\n%s\n\n", i+1, titleOf(c.agents, r.AgentName), r.Content)
	}

	return c.llm.CompleteWithSystem(ctx, synthesisSystemPrompt(), strings.TrimSpace(buf.String()))
}

// concatenate - без синтеза просто склеиваем отчеты под заголовками
func concatenate(responses []AgentResponse, agents []Agent) string {
	var sb strings.Builder
	for i, r := range responses {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n%s", titleOf(agents, r.AgentName), strings.TrimSpace(r.Content))
	}
	return sb.String()
}

func titleOf(agents []Agent, name string) string {
	if a, ok := Find(agents, name); ok && a.Title() != "" {
		return a.Title()
	}
	return name
}
