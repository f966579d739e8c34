package fedguard

import (
	"sync"
	"time"
)

// RoundLedger keeps a bounded window of recent rejection events so the
// control surface can answer "what has the defense been catching" without
// walking full round states.
type RoundLedger struct {
	mu      sync.RWMutex
	keep    int
	entries []RoundEvent
}

type RoundEvent struct {
	SessionID string             `json:"sessionId"`
	Round     int                `json:"round"`
	Findings  []RejectionFinding `json:"findings"`
	Recorded  time.Time          `json:"recorded"`
}

type LedgerSummary struct {
	Rejections    map[string]int `json:"rejections"`
	RoundsCovered int            `json:"roundsCovered"`
	TotalFindings int            `json:"totalFindings"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

func NewRoundLedger(keep int) *RoundLedger {
	if keep <= 0 {
		keep = maxHistory
	}
	return &RoundLedger{keep: keep}
}

func (l *RoundLedger) Record(event RoundEvent) {
	if len(event.Findings) == 0 {
		return
	}
	event.Recorded = time.Now()
	l.mu.Lock()
	l.entries = append(l.entries, event)
	if len(l.entries) > l.keep {
		l.entries = l.entries[len(l.entries)-l.keep:]
	}
	l.mu.Unlock()
}

func (l *RoundLedger) Snapshot() []RoundEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := make([]RoundEvent, len(l.entries))
	copy(events, l.entries)
	return events
}

func (l *RoundLedger) Summary() LedgerSummary {
	summary := LedgerSummary{Rejections: make(map[string]int)}
	events := l.Snapshot()
	summary.RoundsCovered = len(events)
	for _, ev := range events {
		for _, finding := range ev.Findings {
			summary.Rejections[finding.Mechanism]++
			summary.TotalFindings++
		}
		if ev.Recorded.After(summary.LastUpdated) {
			summary.LastUpdated = ev.Recorded
		}
	}
	return summary
}
