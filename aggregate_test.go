package fedguard

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateSmoothing(t *testing.T) {
	clients := make([]Client, 0, 15)
	for i := 0; i < 10; i++ {
		clients = append(clients, Client{Type: ClientBenign, Accepted: i < 8})
	}
	for i := 0; i < 5; i++ {
		clients = append(clients, Client{Type: ClientMalicious, Accepted: i < 2})
	}

	m := aggregate(clients, 0.5, 0.1)
	if m.AcceptedCount != 10 || m.MaliciousAccepted != 2 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if !almostEqual(m.AttackImpact, 0.2) {
		t.Fatalf("expected impact 0.2, got %v", m.AttackImpact)
	}
	// 0.8*0.5 + 0.2*(0.95 - 0.2*0.5) = 0.57
	if !almostEqual(m.Accuracy, 0.57) {
		t.Fatalf("expected accuracy 0.57, got %v", m.Accuracy)
	}
	// impact > 0.1 so the ASR pulls toward 0.9: 0.8*0.1 + 0.2*0.9 = 0.26
	if !almostEqual(m.ASR, 0.26) {
		t.Fatalf("expected ASR 0.26, got %v", m.ASR)
	}
}

func TestAggregateCleanRoundDecaysASR(t *testing.T) {
	clients := []Client{
		{Type: ClientBenign, Accepted: true},
		{Type: ClientBenign, Accepted: true},
		{Type: ClientMalicious, Accepted: false},
	}
	m := aggregate(clients, 0.9, 0.9)
	if m.AttackImpact != 0 {
		t.Fatalf("expected zero impact, got %v", m.AttackImpact)
	}
	// 0.8*0.9 + 0.2*0.95 = 0.91
	if !almostEqual(m.Accuracy, 0.91) {
		t.Fatalf("expected accuracy 0.91, got %v", m.Accuracy)
	}
	// 0.8*0.9 + 0.2*0 = 0.72
	if !almostEqual(m.ASR, 0.72) {
		t.Fatalf("expected ASR 0.72, got %v", m.ASR)
	}
}

func TestAggregateAllRejectedGuard(t *testing.T) {
	clients := []Client{
		{Type: ClientMalicious, Accepted: false},
		{Type: ClientBenign, Accepted: false},
	}
	m := aggregate(clients, 0.5, 0.5)
	if m.AttackImpact != 0 {
		t.Fatalf("all-rejected round must have zero impact, got %v", m.AttackImpact)
	}
}

func TestAggregateLowContaminationDecays(t *testing.T) {
	// 1 malicious out of 12 accepted = 0.083, below the 10% step.
	clients := make([]Client, 0, 12)
	clients = append(clients, Client{Type: ClientMalicious, Accepted: true})
	for i := 0; i < 11; i++ {
		clients = append(clients, Client{Type: ClientBenign, Accepted: true})
	}
	m := aggregate(clients, 0.5, 0.5)
	if !almostEqual(m.ASR, 0.4) {
		t.Fatalf("ASR should decay toward 0 below the contamination step, got %v", m.ASR)
	}
}

func TestAppendHistoryBound(t *testing.T) {
	var history []HistoryPoint
	for round := 1; round <= maxHistory+17; round++ {
		history = appendHistory(history, HistoryPoint{Round: round})
	}
	if len(history) != maxHistory {
		t.Fatalf("expected %d entries, got %d", maxHistory, len(history))
	}
	if history[0].Round != 18 || history[len(history)-1].Round != maxHistory+17 {
		t.Fatalf("window misaligned: first %d last %d", history[0].Round, history[len(history)-1].Round)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Round != history[i-1].Round+1 {
			t.Fatalf("rounds not increasing at index %d", i)
		}
	}
}
