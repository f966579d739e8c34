package fedguard

import (
	"path/filepath"
	"testing"
)

func TestInMemoryHistoryStore(t *testing.T) {
	store := NewInMemoryHistoryStore()
	for round := 1; round <= 5; round++ {
		point := HistoryPoint{Round: round, Accuracy: 0.1 * float64(round), ASR: 0.01 * float64(round)}
		if err := store.SaveRound("session-a", point); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	points, err := store.LoadHistory("session-a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 5 || points[0].Round != 1 || points[4].Round != 5 {
		t.Fatalf("unexpected history: %+v", points)
	}

	points, err = store.LoadHistory("session-a", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 || points[0].Round != 4 {
		t.Fatalf("limit should keep the most recent entries: %+v", points)
	}

	points, err = store.LoadHistory("unknown", 0)
	if err != nil || len(points) != 0 {
		t.Fatalf("unknown session should yield empty history, got %v %v", points, err)
	}
}

func TestSQLiteHistoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteHistoryStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.HealthCheck(); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	for round := 1; round <= 3; round++ {
		point := HistoryPoint{Round: round, Accuracy: 0.5, ASR: 0.2}
		if err := store.SaveRound("session-a", point); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// Same round again must replace, not duplicate.
	if err := store.SaveRound("session-a", HistoryPoint{Round: 3, Accuracy: 0.6, ASR: 0.1}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveRound("session-b", HistoryPoint{Round: 1, Accuracy: 0.9, ASR: 0}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	points, err := store.LoadHistory("session-a", 0)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(points))
	}
	if points[2].Round != 3 || points[2].Accuracy != 0.6 {
		t.Fatalf("replacement not applied: %+v", points[2])
	}

	points, err = store.LoadHistory("session-a", 1)
	if err != nil || len(points) != 1 || points[0].Round != 3 {
		t.Fatalf("limit should keep the most recent round: %v %v", points, err)
	}
}
