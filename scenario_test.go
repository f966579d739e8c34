package fedguard

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleScenario = `
name: toggle-test
steps:
  - name: undefended
    rounds: 3
    config:
      momentumFIM: false
      stiffnessMask: false
      layerWeightedClustering: false
  - name: defended
    rounds: 2
    config:
      momentumFIM: true
      stiffnessMask: true
      layerWeightedClustering: true
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, sampleScenario))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scenario.Name != "toggle-test" || len(scenario.Steps) != 2 {
		t.Fatalf("unexpected scenario: %+v", scenario)
	}
	step := scenario.Steps[0]
	if step.Rounds != 3 || step.Patch.StiffnessMask == nil || *step.Patch.StiffnessMask {
		t.Fatalf("unexpected first step: %+v", step)
	}
	if step.Patch.NonIIDLevel != nil {
		t.Fatalf("unset patch fields must stay nil")
	}
}

func TestLoadScenarioRejectsEmptyAndZeroRounds(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "name: empty\nsteps: []\n")); err == nil {
		t.Fatalf("expected error for empty scenario")
	}
	bad := "steps:\n  - name: noop\n    rounds: 0\n"
	if _, err := LoadScenario(writeScenario(t, bad)); err == nil {
		t.Fatalf("expected error for zero-round step")
	}
}

func TestConfigPatchApply(t *testing.T) {
	cfg := DefaultSimulationConfig()
	level := 1.5
	enabled := false
	patched := ConfigPatch{NonIIDLevel: &level, MomentumFIM: &enabled}.Apply(cfg)
	if patched.NonIIDLevel != 1.5 || patched.MomentumFIM {
		t.Fatalf("patch not applied: %+v", patched)
	}
	if patched.AttackStealth != cfg.AttackStealth || patched.ClientCount != cfg.ClientCount {
		t.Fatalf("patch touched unrelated fields: %+v", patched)
	}
}

func TestRunScenario(t *testing.T) {
	engine, err := NewEngine(scenarioConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scenario, err := LoadScenario(writeScenario(t, sampleScenario))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results, err := RunScenario(engine, scenario)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(results))
	}
	if results[0].Round != 3 || results[1].Round != 5 {
		t.Fatalf("steps did not advance cumulatively: %+v", results)
	}
	// The undefended step admits the attackers; the defended step stops them.
	if results[0].MaliciousAccepted == 0 {
		t.Fatalf("undefended step should admit malicious updates")
	}
	if results[1].MaliciousAccepted >= results[0].MaliciousAccepted {
		t.Fatalf("defended step should admit fewer malicious updates: %+v", results)
	}
}

func TestRunScenarioRejectsInvalidPatch(t *testing.T) {
	engine, err := NewEngine(scenarioConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := "steps:\n  - name: broken\n    rounds: 1\n    config:\n      nonIIDLevel: 5\n"
	scenario, err := LoadScenario(writeScenario(t, bad))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := RunScenario(engine, scenario); err == nil {
		t.Fatalf("out-of-range patch must fail the run")
	}
}
