package fedguard

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSimulationConfig(t *testing.T) {
	cfg := DefaultSimulationConfig()
	if cfg.ClientCount != 20 || cfg.VectorDimension != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaliciousRatio != 0.2 || cfg.NonIIDLevel != 0.5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := NewDefaultConfigValidator().Validate(&cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestAttackStrengthDerivation(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.AttackStealth = 0.0
	if cfg.AttackStrength() != 1.5 {
		t.Fatalf("stealth 0 should yield strength 1.5, got %v", cfg.AttackStrength())
	}
	cfg.AttackStealth = 0.9
	if got := cfg.AttackStrength(); got < 0.59999 || got > 0.60001 {
		t.Fatalf("stealth 0.9 should yield strength 0.6, got %v", got)
	}
}

func TestLoadConfigMissingDirUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("missing directory must not fail: %v", err)
	}
	if cfg != DefaultSimulationConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`{"attackStealth": 0.8, "clientCount": 30, "stiffnessMask": false}`)
	if err := os.WriteFile(filepath.Join(dir, "simulation.json"), content, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AttackStealth != 0.8 || cfg.ClientCount != 30 || cfg.StiffnessMask {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.VectorDimension != 20 || !cfg.MomentumFIM {
		t.Fatalf("defaults clobbered: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidatorRejectsOutOfRange(t *testing.T) {
	v := NewDefaultConfigValidator()
	cases := []func(*SimulationConfig){
		func(c *SimulationConfig) { c.NonIIDLevel = -0.01 },
		func(c *SimulationConfig) { c.NonIIDLevel = 2.01 },
		func(c *SimulationConfig) { c.AttackStealth = 0.91 },
		func(c *SimulationConfig) { c.AttackStealth = -0.1 },
		func(c *SimulationConfig) { c.MaliciousRatio = 1.01 },
		func(c *SimulationConfig) { c.MaliciousRatio = -0.2 },
		func(c *SimulationConfig) { c.ClientCount = 0 },
		func(c *SimulationConfig) { c.VectorDimension = 4 },
	}
	for i, mutate := range cases {
		cfg := DefaultSimulationConfig()
		mutate(&cfg)
		if err := v.Validate(&cfg); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, cfg)
		}
	}
	if err := v.Validate(nil); err == nil {
		t.Fatalf("nil config must not validate")
	}
}

func TestValidatorAcceptsBoundaryValues(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.NonIIDLevel = 2
	cfg.AttackStealth = 0.9
	cfg.MaliciousRatio = 1
	cfg.VectorDimension = 5
	cfg.ClientCount = 1
	if err := NewDefaultConfigValidator().Validate(&cfg); err != nil {
		t.Fatalf("boundary values must validate: %v", err)
	}
}
