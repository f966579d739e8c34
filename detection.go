package fedguard

import (
	"fmt"
)

// RejectionFinding records why a single client's update was rejected.
type RejectionFinding struct {
	ClientID  int     `json:"clientId"`
	Mechanism string  `json:"mechanism"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Reason    string  `json:"reason"`
}

// DetectionVerdict aggregates one round's rejections.
type DetectionVerdict struct {
	Triggered bool               `json:"triggered"`
	Findings  []RejectionFinding `json:"findings"`
}

const (
	MechanismStiffness  = "stiffness_conflict"
	MechanismClustering = "weighted_clustering"
	MechanismMagnitude  = "magnitude_fallback"
)

type detectionContext struct {
	client        *Client
	cfg           SimulationConfig
	importance    Vector
	trueDirection Vector
}

type mechanismOutcome struct {
	triggered bool
	score     float64
	threshold float64
	reason    string
}

type mechanismDef struct {
	Name    string
	Enabled func(cfg SimulationConfig) bool
	Detect  func(ctx detectionContext) mechanismOutcome
}

// mechanismDefinitions is the fixed evaluation order. The first mechanism
// that triggers wins; a client is never un-rejected. New defenses slot in
// here without touching the evaluation loop.
var mechanismDefinitions = []mechanismDef{
	{
		Name:    MechanismStiffness,
		Enabled: func(cfg SimulationConfig) bool { return cfg.StiffnessMask },
		Detect:  detectStiffnessConflict,
	},
	{
		Name:    MechanismClustering,
		Enabled: func(cfg SimulationConfig) bool { return cfg.LayerWeightedClustering },
		Detect:  detectWeightedClustering,
	},
}

// detectStiffnessConflict flags large importance-weighted gradient mass:
// the backdoor's fingerprint is magnitude concentrated on coordinates the
// FIM marks as sensitive. The threshold scales with the non-IID level
// because natural dispersion grows with heterogeneity, and drops when the
// momentum FIM is enabled since the converged weighting separates attackers
// more cleanly.
func detectStiffnessConflict(ctx detectionContext) mechanismOutcome {
	score := 0.0
	g := ctx.client.Gradient
	for j := range g {
		abs := g[j]
		if abs < 0 {
			abs = -abs
		}
		score += ctx.importance[j] * abs
	}
	ctx.client.StiffnessScore = score

	base := 15.0
	if ctx.cfg.MomentumFIM {
		base = 12.0
	}
	threshold := base * (1 + ctx.cfg.NonIIDLevel)
	return mechanismOutcome{
		triggered: score > threshold,
		score:     score,
		threshold: threshold,
		reason:    fmt.Sprintf("importance-weighted gradient mass %.2f exceeds %.2f", score, threshold),
	}
}

// detectWeightedClustering measures importance-weighted squared distance to
// the true direction. Weighting suppresses noisy low-importance coordinates
// that dominate under high non-IID while amplifying genuine deviation on
// the trigger coordinates. The threshold scales by (1+nonIID) regardless of
// weighting; that asymmetry is preserved from the original model.
func detectWeightedClustering(ctx detectionContext) mechanismOutcome {
	dist := 0.0
	g := ctx.client.Gradient
	for j := range g {
		d := g[j] - ctx.trueDirection[j]
		dist += ctx.importance[j] * d * d
	}
	threshold := 500.0 * (1 + ctx.cfg.NonIIDLevel)
	return mechanismOutcome{
		triggered: dist > threshold,
		score:     dist,
		threshold: threshold,
		reason:    fmt.Sprintf("weighted distance %.2f to true direction exceeds %.2f", dist, threshold),
	}
}

// magnitudeThreshold is the naive undefended baseline: stealthy attacks
// keep per-coordinate magnitude low enough to slip under it.
const magnitudeThreshold = 25.0

// runDetection scores every client against the enabled mechanisms in order
// and returns the round's verdict. When no mechanism is enabled a plain
// magnitude check models the undefended baseline. Clients do not interact;
// the pass is sequential only because nothing here contends.
func runDetection(clients []Client, cfg SimulationConfig, importance, trueDirection Vector) DetectionVerdict {
	verdict := DetectionVerdict{}
	fallback := !cfg.StiffnessMask && !cfg.LayerWeightedClustering

	for i := range clients {
		client := &clients[i]
		ctx := detectionContext{
			client:        client,
			cfg:           cfg,
			importance:    importance,
			trueDirection: trueDirection,
		}

		for _, def := range mechanismDefinitions {
			if !def.Enabled(cfg) {
				continue
			}
			outcome := def.Detect(ctx)
			if outcome.triggered {
				client.Accepted = false
				client.RejectedBy = def.Name
				verdict.Findings = append(verdict.Findings, RejectionFinding{
					ClientID:  client.ID,
					Mechanism: def.Name,
					Score:     outcome.score,
					Threshold: outcome.threshold,
					Reason:    outcome.reason,
				})
				break
			}
		}

		if fallback && client.Accepted {
			if mag := Magnitude(client.Gradient); mag > magnitudeThreshold {
				client.Accepted = false
				client.RejectedBy = MechanismMagnitude
				verdict.Findings = append(verdict.Findings, RejectionFinding{
					ClientID:  client.ID,
					Mechanism: MechanismMagnitude,
					Score:     mag,
					Threshold: magnitudeThreshold,
					Reason:    fmt.Sprintf("gradient magnitude %.2f exceeds %.2f", mag, magnitudeThreshold),
				})
			}
		}
	}

	verdict.Triggered = len(verdict.Findings) > 0
	return verdict
}
