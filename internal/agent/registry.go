package agent

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

// NewAllAgents собирает всю команду со встроенными промптами
func NewAllAgents(llmClient llm.Client, logger *zap.Logger) []Agent {
	return NewRoster(llmClient, logger, nil)
}

// NewRoster собирает команду с учетом переопределений, отключенные агенты пропускаются
func NewRoster(llmClient llm.Client, logger *zap.Logger, overrides *Overrides) []Agent {
	if logger == nil {
		logger = zap.NewNop()
	}

	agents := make([]Agent, 0, len(rosterOrder))
	for _, name := range rosterOrder {
		spec, _ := DefaultSpec(name)
		if overrides != nil {
			var enabled bool
			spec, enabled = overrides.Apply(spec)
			if !enabled {
				logger.Info("agent disabled by config", zap.String("agent", name))
				continue
			}
		}
		agents = append(agents, NewFromSpec(spec, llmClient, logger))
	}
	return agents
}

// Find ищет агента по имени
func Find(agents []Agent, name string) (Agent, bool) {
	for _, a := range agents {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}
