package fedguard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPatch is a partial config override; nil fields leave the current
// value untouched. Scenario steps use patches so a step can toggle one
// defense without restating the whole configuration.
type ConfigPatch struct {
	MomentumFIM             *bool    `yaml:"momentumFIM,omitempty" json:"momentumFIM,omitempty"`
	StiffnessMask           *bool    `yaml:"stiffnessMask,omitempty" json:"stiffnessMask,omitempty"`
	LayerWeightedClustering *bool    `yaml:"layerWeightedClustering,omitempty" json:"layerWeightedClustering,omitempty"`
	NonIIDLevel             *float64 `yaml:"nonIIDLevel,omitempty" json:"nonIIDLevel,omitempty"`
	AttackStealth           *float64 `yaml:"attackStealth,omitempty" json:"attackStealth,omitempty"`
	ClientCount             *int     `yaml:"clientCount,omitempty" json:"clientCount,omitempty"`
	MaliciousRatio          *float64 `yaml:"maliciousRatio,omitempty" json:"maliciousRatio,omitempty"`
}

func (p ConfigPatch) Apply(cfg SimulationConfig) SimulationConfig {
	if p.MomentumFIM != nil {
		cfg.MomentumFIM = *p.MomentumFIM
	}
	if p.StiffnessMask != nil {
		cfg.StiffnessMask = *p.StiffnessMask
	}
	if p.LayerWeightedClustering != nil {
		cfg.LayerWeightedClustering = *p.LayerWeightedClustering
	}
	if p.NonIIDLevel != nil {
		cfg.NonIIDLevel = *p.NonIIDLevel
	}
	if p.AttackStealth != nil {
		cfg.AttackStealth = *p.AttackStealth
	}
	if p.ClientCount != nil {
		cfg.ClientCount = *p.ClientCount
	}
	if p.MaliciousRatio != nil {
		cfg.MaliciousRatio = *p.MaliciousRatio
	}
	return cfg
}

// ScenarioStep drives the engine for a number of rounds under a patched
// config, e.g. "20 undefended rounds, then enable both defenses".
type ScenarioStep struct {
	Name   string      `yaml:"name"`
	Rounds int         `yaml:"rounds"`
	Patch  ConfigPatch `yaml:"config"`
}

type Scenario struct {
	Name  string         `yaml:"name"`
	Steps []ScenarioStep `yaml:"steps"`
}

// StepResult summarizes where each step left the simulation.
type StepResult struct {
	Step              string  `json:"step"`
	Round             int     `json:"round"`
	Accuracy          float64 `json:"accuracy"`
	ASR               float64 `json:"asr"`
	MaliciousAccepted int     `json:"maliciousAccepted"`
	Rejected          int     `json:"rejected"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %v", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	for i, step := range scenario.Steps {
		if step.Rounds < 1 {
			return nil, fmt.Errorf("scenario step %d (%s) must run at least one round", i, step.Name)
		}
	}
	return &scenario, nil
}

// RunScenario applies each step's patch and advances the engine, returning
// one summary per step. Patched configs go through the engine's validator,
// so an out-of-range step fails the run rather than silently clamping.
func RunScenario(engine *Engine, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		cfg := step.Patch.Apply(engine.Config())
		if err := engine.SetConfig(cfg); err != nil {
			return results, fmt.Errorf("scenario step %d (%s): %v", i, step.Name, err)
		}
		var state RoundState
		for r := 0; r < step.Rounds; r++ {
			state = engine.Advance()
		}
		result := StepResult{Step: step.Name, Round: state.Round, Accuracy: state.GlobalAccuracy, ASR: state.BackdoorSuccessRate}
		for _, c := range state.Clients {
			if !c.Accepted {
				result.Rejected++
			} else if c.Type == ClientMalicious {
				result.MaliciousAccepted++
			}
		}
		results = append(results, result)
	}
	return results, nil
}
