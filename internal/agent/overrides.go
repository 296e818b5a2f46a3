package agent

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Overrides - файл AGENTS_CONFIG:
//
//	agents:
//	  risk:
//	    title: Risk Desk
//	    instructions: |
//	      - Focus on downside scenarios
//	    keywords: [risk, hedge]
//	  sentiment:
//	    disabled: true
type Overrides struct {
	Agents map[string]AgentOverride `yaml:"agents"`
}

type AgentOverride struct {
	Title        string   `yaml:"title"`
	Role         string   `yaml:"role"`
	Instructions string   `yaml:"instructions"`
	Keywords     []string `yaml:"keywords"`
	Disabled     bool     `yaml:"disabled"`
}

func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents config: %w", err)
	}
	return ParseOverrides(data)
}

func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse agents config: %w", err)
	}

	for name := range o.Agents {
		if _, ok := specs[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
	}
	return &o, nil
}

// Apply накладывает непустые поля на spec, второй результат false - агент выключен
func (o *Overrides) Apply(spec Spec) (Spec, bool) {
	ov, ok := o.Agents[spec.Name]
	if !ok {
		return spec, true
	}
	if ov.Disabled {
		return spec, false
	}
	if ov.Title != "" {
		spec.Title = ov.Title
	}
	if ov.Role != "" {
		spec.Role = ov.Role
	}
	if strings.TrimSpace(ov.Instructions) != "" {
		spec.Instructions = ov.Instructions
	}
	if len(ov.Keywords) > 0 {
		spec.Keywords = ov.Keywords
	}
	return spec, true
}
