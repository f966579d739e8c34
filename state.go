package fedguard

// ClientType distinguishes benign participants from backdoor attackers.
type ClientType string

const (
	ClientBenign    ClientType = "benign"
	ClientMalicious ClientType = "malicious"
)

// Client is one simulated participant in a single round. Clients are
// regenerated fully every round; the ID is positional and carries no
// identity across rounds beyond what DataDistribution encodes.
type Client struct {
	ID               int        `json:"id"`
	Type             ClientType `json:"type"`
	DataDistribution float64    `json:"dataDistribution"`
	Gradient         Vector     `json:"gradient"`
	StiffnessScore   float64    `json:"stiffnessScore"`
	Accepted         bool       `json:"accepted"`
	RejectedBy       string     `json:"rejectedBy,omitempty"`
}

// HistoryPoint is one entry of the bounded accuracy/ASR time series.
type HistoryPoint struct {
	Round    int     `json:"round"`
	Accuracy float64 `json:"acc"`
	ASR      float64 `json:"asr"`
}

// maxHistory bounds the metric time series to the most recent rounds.
const maxHistory = 50

// RoundState is the sole unit of engine state. It is replaced wholesale by
// each round transition; callers never observe a partially updated round.
type RoundState struct {
	Round               int            `json:"round"`
	GlobalAccuracy      float64        `json:"globalAccuracy"`
	BackdoorSuccessRate float64        `json:"backdoorSuccessRate"`
	ImportanceVector    Vector         `json:"importanceVector"`
	Clients             []Client       `json:"clients"`
	History             []HistoryPoint `json:"history"`
}

const (
	initialAccuracy = 0.1
	initialASR      = 0.0
)

func newInitialState(dim int) RoundState {
	return RoundState{
		Round:               0,
		GlobalAccuracy:      initialAccuracy,
		BackdoorSuccessRate: initialASR,
		ImportanceVector:    ones(dim),
	}
}

// Clone deep-copies the state so callers can hold snapshots while the
// engine keeps advancing.
func (s RoundState) Clone() RoundState {
	out := s
	out.ImportanceVector = s.ImportanceVector.Clone()
	out.Clients = make([]Client, len(s.Clients))
	for i, c := range s.Clients {
		c.Gradient = c.Gradient.Clone()
		out.Clients[i] = c
	}
	out.History = make([]HistoryPoint, len(s.History))
	copy(out.History, s.History)
	return out
}
