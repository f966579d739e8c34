package fedguard

// HistoryStore persists the per-round metric trail outside the engine's
// in-memory window. The engine never depends on it for correctness; the
// in-memory RoundState stays authoritative when writes fail.
type HistoryStore interface {
	SaveRound(sessionID string, point HistoryPoint) error
	LoadHistory(sessionID string, limit int) ([]HistoryPoint, error)
	HealthCheck() error
	Close() error
}

// MetricsCollector is the observability sink for round outcomes.
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	HealthCheck() error
	ExportPrometheus() string
}
