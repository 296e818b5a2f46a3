package agent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

func TestParseOverrides_UnknownAgent(t *testing.T) {
	_, err := ParseOverrides([]byte("agents:\n  astrologer:\n    title: Stars\n"))
	if !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("ParseOverrides() error = %v, want ErrUnknownAgent", err)
	}
}

func TestParseOverrides_BadYAML(t *testing.T) {
	if _, err := ParseOverrides([]byte("agents: [")); err == nil {
		t.Error("ParseOverrides() should fail on broken yaml")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `agents:
  technical:
    instructions: |
      - Only use daily candles
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}

	spec, _ := DefaultSpec(domain.AgentTechnical)
	got, enabled := o.Apply(spec)
	if !enabled {
		t.Fatal("technical should stay enabled")
	}
	if got.Instructions != "- Only use daily candles\n" {
		t.Errorf("Instructions = %q", got.Instructions)
	}
	if got.Title != "Technical Analysis Specialist" {
		t.Errorf("Title = %q", got.Title)
	}

	if _, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadOverrides(missing) should fail")
	}
}

func TestDefaultSpec_ReturnsCopy(t *testing.T) {
	s, ok := DefaultSpec(domain.AgentRisk)
	if !ok {
		t.Fatal("risk spec missing")
	}
	s.Keywords[0] = "mutated"

	again, _ := DefaultSpec(domain.AgentRisk)
	if again.Keywords[0] == "mutated" {
		t.Error("DefaultSpec must not expose shared slices")
	}
}
