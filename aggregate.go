package fedguard

const (
	metricDecay     = 0.8
	baseAccuracy    = 0.95
	impactPenalty   = 0.5
	asrTarget       = 0.9
	contaminationAt = 0.1
)

// roundMetrics is the aggregator's view of one processed round.
type roundMetrics struct {
	AcceptedCount     int
	MaliciousAccepted int
	AttackImpact      float64
	Accuracy          float64
	ASR               float64
}

// aggregate folds the acceptance decisions into the smoothed global
// metrics. Accuracy degrades with the fraction of accepted updates that
// are malicious; the ASR is a step function of whether contamination
// exceeds 10%, then smoothed so neither metric jumps instantaneously.
func aggregate(clients []Client, prevAccuracy, prevASR float64) roundMetrics {
	m := roundMetrics{}
	for _, c := range clients {
		if !c.Accepted {
			continue
		}
		m.AcceptedCount++
		if c.Type == ClientMalicious {
			m.MaliciousAccepted++
		}
	}

	// Guards the degenerate all-rejected round; a defined fallback,
	// not an error path.
	denom := m.AcceptedCount
	if denom < 1 {
		denom = 1
	}
	m.AttackImpact = float64(m.MaliciousAccepted) / float64(denom)

	targetAccuracy := baseAccuracy - m.AttackImpact*impactPenalty
	m.Accuracy = metricDecay*prevAccuracy + (1-metricDecay)*targetAccuracy

	target := 0.0
	if m.AttackImpact > contaminationAt {
		target = asrTarget
	}
	m.ASR = metricDecay*prevASR + (1-metricDecay)*target
	return m
}

// appendHistory keeps the most recent maxHistory points, dropping the
// oldest on overflow.
func appendHistory(history []HistoryPoint, point HistoryPoint) []HistoryPoint {
	history = append(history, point)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}
