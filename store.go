package fedguard

import (
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// InMemoryHistoryStore implements HistoryStore for hostless runs and tests.
type InMemoryHistoryStore struct {
	mu     sync.RWMutex
	rounds map[string][]HistoryPoint
}

func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{rounds: make(map[string][]HistoryPoint)}
}

func (s *InMemoryHistoryStore) SaveRound(sessionID string, point HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[sessionID] = append(s.rounds[sessionID], point)
	return nil
}

func (s *InMemoryHistoryStore) LoadHistory(sessionID string, limit int) ([]HistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points := s.rounds[sessionID]
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	out := make([]HistoryPoint, len(points))
	copy(out, points)
	return out, nil
}

func (s *InMemoryHistoryStore) HealthCheck() error { return nil }
func (s *InMemoryHistoryStore) Close() error       { return nil }

// SQLiteHistoryStore persists the metric trail beyond the engine's bounded
// in-memory window. One row per advanced round per session.
type SQLiteHistoryStore struct {
	db *sqlx.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS round_history (
	session_id TEXT NOT NULL,
	round      INTEGER NOT NULL,
	accuracy   REAL NOT NULL,
	asr        REAL NOT NULL,
	recorded   TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, round)
);`

func NewSQLiteHistoryStore(path string) (*SQLiteHistoryStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteHistoryStore{db: db}, nil
}

func (s *SQLiteHistoryStore) SaveRound(sessionID string, point HistoryPoint) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO round_history (session_id, round, accuracy, asr, recorded) VALUES (?, ?, ?, ?, ?)`,
		sessionID, point.Round, point.Accuracy, point.ASR, time.Now().UTC(),
	)
	return err
}

func (s *SQLiteHistoryStore) LoadHistory(sessionID string, limit int) ([]HistoryPoint, error) {
	query := `SELECT round, accuracy, asr FROM round_history WHERE session_id = ? ORDER BY round`
	rows, err := s.db.Queryx(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.Round, &p.Accuracy, &p.ASR); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

func (s *SQLiteHistoryStore) HealthCheck() error { return s.db.Ping() }
func (s *SQLiteHistoryStore) Close() error       { return s.db.Close() }
