package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/agent"
	"github.com/kitbuilder587/finanalyst/internal/domain"
)

// agentPipeline - часть agent.Coordinator, нужная сервисам
type agentPipeline interface {
	Process(ctx context.Context, req agent.AgentRequest, profile domain.Profile) (*agent.CoordinatorResponse, error)
	Agents() []agent.Agent
}

// CoordinatorAdapter переводит запросы сервисов в запросы агентного слоя
type CoordinatorAdapter struct {
	pipeline agentPipeline
	logger   *zap.Logger
}

func NewCoordinatorAdapter(pipeline agentPipeline, logger *zap.Logger) *CoordinatorAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoordinatorAdapter{pipeline: pipeline, logger: logger}
}

func (a *CoordinatorAdapter) Process(ctx context.Context, req AgentCoordinatorRequest) (*CoordinatorResponse, error) {
	resp, err := a.pipeline.Process(ctx, agent.AgentRequest{
		Question:      req.Question,
		AnalysisType:  req.Profile.Type,
		Symbols:       req.Symbols,
		Timeframe:     req.Timeframe,
		MarketDigest:  req.MarketDigest,
		SearchResults: req.SearchResults,
		Context:       req.Context,
	}, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("coordinator %s: %w", req.Profile.Type, err)
	}

	if len(resp.AgentsFailed) > 0 {
		a.logger.Warn("analysis finished with failed agents",
			zap.String("analysis_type", string(req.Profile.Type)),
			zap.Strings("agents_failed", resp.AgentsFailed),
			zap.Bool("synthesized", resp.Synthesized),
		)
	}

	return &CoordinatorResponse{
		FinalAnswer:  resp.FinalAnswer,
		AgentsUsed:   resp.AgentsUsed,
		AgentsFailed: resp.AgentsFailed,
		Synthesized:  resp.Synthesized,
	}, nil
}

// Agents - имена агентов в ростере
func (a *CoordinatorAdapter) Agents() []string {
	agents := a.pipeline.Agents()
	names := make([]string, len(agents))
	for i, ag := range agents {
		names[i] = ag.Name()
	}
	return names
}
