package fedguard

import (
	"fmt"
)

// ConfigValidator rejects simulation configs outside their documented
// ranges. Values are never clamped silently so the simulation's
// assumptions stay auditable.
type ConfigValidator interface {
	Validate(config *SimulationConfig) error
}

type DefaultConfigValidator struct{}

func NewDefaultConfigValidator() *DefaultConfigValidator {
	return &DefaultConfigValidator{}
}

func (v *DefaultConfigValidator) Validate(config *SimulationConfig) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.NonIIDLevel < 0 || config.NonIIDLevel > 2 {
		return fmt.Errorf("nonIIDLevel %v outside [0,2]", config.NonIIDLevel)
	}
	if config.AttackStealth < 0 || config.AttackStealth > 0.9 {
		return fmt.Errorf("attackStealth %v outside [0,0.9]", config.AttackStealth)
	}
	if config.MaliciousRatio < 0 || config.MaliciousRatio > 1 {
		return fmt.Errorf("maliciousRatio %v outside [0,1]", config.MaliciousRatio)
	}
	if config.ClientCount < 1 {
		return fmt.Errorf("clientCount must be at least 1, got %d", config.ClientCount)
	}
	// Trigger coordinates 0..4 are hard-coded; anything narrower is a
	// configuration error, not a degenerate simulation.
	if config.VectorDimension < triggerDims {
		return fmt.Errorf("vectorDimension must be at least %d, got %d", triggerDims, config.VectorDimension)
	}
	return nil
}
