package fedguard

// The simulated FIM converges toward an idealized sensitivity profile:
// trigger coordinates are structurally an order of magnitude more important
// than the rest. A real system would estimate this from curvature statistics
// of accepted gradients; idealizing it here isolates the detection
// mechanisms from estimation noise.
const (
	importanceDecay        = 0.9
	idealTriggerImportance = 10.0
	idealBaseImportance    = 1.0
)

// nextImportance computes the round's importance vector from the previous
// round's estimate. With momentum FIM disabled the previous vector carries
// forward unchanged. The EMA is a convex combination of non-negative
// inputs, so every component stays within [0, idealTriggerImportance].
func nextImportance(prev Vector, cfg SimulationConfig) Vector {
	if !cfg.MomentumFIM {
		return prev.Clone()
	}
	next := make(Vector, len(prev))
	for j := range prev {
		ideal := idealBaseImportance
		if j < triggerDims {
			ideal = idealTriggerImportance
		}
		next[j] = importanceDecay*prev[j] + (1-importanceDecay)*ideal
	}
	return next
}
