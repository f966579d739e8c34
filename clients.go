package fedguard

import (
	"math"
)

// generateClients produces one fresh synthetic client per index. The first
// floor(N*ratio) indices are malicious; assignment is positional, never
// random, so the attacker set is stable for a given config.
func generateClients(cfg SimulationConfig, trueDirection Vector, src *NormalSource) []Client {
	count := cfg.ClientCount
	malicious := cfg.maliciousCount()
	strength := cfg.AttackStrength()

	clients := make([]Client, count)
	for i := 0; i < count; i++ {
		isMalicious := i < malicious

		// Attackers collude on similar data; benign clients spread
		// evenly across the distribution axis.
		dist := float64(i) / float64(count)
		if isMalicious {
			dist = 0.9
		}

		c := Client{
			ID:               i,
			DataDistribution: dist,
			Type:             ClientBenign,
			Accepted:         true,
		}
		if isMalicious {
			c.Type = ClientMalicious
		}
		c.Gradient = synthesizeGradient(trueDirection, dist, isMalicious, cfg.NonIIDLevel, strength, src)
		clients[i] = c
	}
	return clients
}

// synthesizeGradient builds a plausible gradient around the true direction:
// heterogeneous noise plus a systematic bias keyed to the client's data
// distribution, a strong deterministic pull on the trigger coordinates for
// attackers, and stealth noise elsewhere to blend with benign statistics.
func synthesizeGradient(trueDirection Vector, dist float64, malicious bool, nonIID, strength float64, src *NormalSource) Vector {
	g := make(Vector, len(trueDirection))
	for j := range g {
		v := trueDirection[j]
		v += src.StandardNormal()*nonIID*2 + math.Sin(dist*2*math.Pi+float64(j))*nonIID
		if malicious {
			if j < triggerDims {
				v -= strength * 5
			} else {
				v += src.StandardNormal() * 0.5
			}
		}
		g[j] = v
	}
	return g
}
