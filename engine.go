package fedguard

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/oarkflow/log"
)

// The true direction and random source belong to the session and are sized
// at initialization; a dimension change only makes sense as a fresh session.
var errDimensionLocked = errors.New("vectorDimension cannot change mid-session, reset instead")

// AdvanceRound is the pure round transition: generate this round's clients,
// roll the importance estimate forward from the previous round, score every
// client against the enabled defenses, then fold the acceptance decisions
// into the smoothed global metrics. The previous state is not mutated.
func AdvanceRound(prev RoundState, cfg SimulationConfig, trueDirection Vector, src *NormalSource) (RoundState, DetectionVerdict) {
	next := RoundState{Round: prev.Round + 1}

	// The importance update feeds on the previous round's estimate, not
	// on this round's gradients.
	next.ImportanceVector = nextImportance(prev.ImportanceVector, cfg)
	next.Clients = generateClients(cfg, trueDirection, src)
	verdict := runDetection(next.Clients, cfg, next.ImportanceVector, trueDirection)

	m := aggregate(next.Clients, prev.GlobalAccuracy, prev.BackdoorSuccessRate)
	next.GlobalAccuracy = m.Accuracy
	next.BackdoorSuccessRate = m.ASR
	next.History = appendHistory(prev.History, HistoryPoint{
		Round:    next.Round,
		Accuracy: m.Accuracy,
		ASR:      m.ASR,
	})
	return next, verdict
}

// Engine owns one simulation session: the immutable true direction, the
// seeded random source, the current RoundState, and the ambient
// collaborators. One round transition is a critical section; the state a
// caller reads is always a complete round.
type Engine struct {
	mu            sync.Mutex
	sessionID     string
	cfg           SimulationConfig
	trueDirection Vector
	src           *NormalSource
	state         RoundState

	validator ConfigValidator
	metrics   MetricsCollector
	ledger    *RoundLedger
	history   HistoryStore
	logger    *log.Logger
}

type EngineOption func(*Engine)

func WithMetrics(m MetricsCollector) EngineOption  { return func(e *Engine) { e.metrics = m } }
func WithHistoryStore(s HistoryStore) EngineOption { return func(e *Engine) { e.history = s } }
func WithLedger(l *RoundLedger) EngineOption       { return func(e *Engine) { e.ledger = l } }
func WithValidator(v ConfigValidator) EngineOption { return func(e *Engine) { e.validator = v } }
func WithLogger(logger *log.Logger) EngineOption   { return func(e *Engine) { e.logger = logger } }

// NewEngine validates the config, samples the session's true gradient
// direction once, and seats the initial round-0 state.
func NewEngine(cfg SimulationConfig, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		sessionID: uuid.New().String(),
		validator: NewDefaultConfigValidator(),
		logger:    &log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.src = NewNormalSource(cfg.Seed)
	e.trueDirection = sampleDirection(cfg.VectorDimension, e.src)
	e.state = newInitialState(cfg.VectorDimension)

	e.logger.Info().
		Str("session", e.sessionID).
		Int64("seed", cfg.Seed).
		Int("clients", cfg.ClientCount).
		Int("dimension", cfg.VectorDimension).
		Msg("simulation session initialized")
	return e, nil
}

func (e *Engine) SessionID() string { return e.sessionID }

// State returns a deep copy of the current round.
func (e *Engine) State() RoundState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// TrueDirection exposes the session's reference vector for external
// consumers (e.g. scatter projections); the returned copy cannot alter it.
func (e *Engine) TrueDirection() Vector {
	return e.trueDirection.Clone()
}

func (e *Engine) Config() SimulationConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig swaps the configuration consumed by the next round. Seed and
// dimension changes take effect on Reset, not mid-session: the true
// direction and random source belong to the session, not the round.
func (e *Engine) SetConfig(cfg SimulationConfig) error {
	if err := e.validator.Validate(&cfg); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.VectorDimension != e.cfg.VectorDimension {
		return errDimensionLocked
	}
	e.cfg = cfg
	e.logger.Info().Str("session", e.sessionID).Msg("simulation config updated")
	return nil
}

// Advance runs one round transition and returns the resulting state.
func (e *Engine) Advance() RoundState {
	e.mu.Lock()
	next, verdict := AdvanceRound(e.state, e.cfg, e.trueDirection, e.src)
	e.state = next
	cfg := e.cfg
	e.mu.Unlock()

	e.observe(next, verdict, cfg)
	return next.Clone()
}

// Reset discards history and importance accumulation and starts a fresh
// session state from the given config, re-sampling the true direction.
func (e *Engine) Reset(cfg SimulationConfig) error {
	if err := e.validator.Validate(&cfg); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.src = NewNormalSource(cfg.Seed)
	e.trueDirection = sampleDirection(cfg.VectorDimension, e.src)
	e.state = newInitialState(cfg.VectorDimension)
	e.logger.Info().Str("session", e.sessionID).Int64("seed", cfg.Seed).Msg("simulation reset")
	return nil
}

func (e *Engine) observe(state RoundState, verdict DetectionVerdict, cfg SimulationConfig) {
	if e.metrics != nil {
		e.metrics.IncrementCounter("fedsim_rounds_total", nil)
		e.metrics.SetGauge("fedsim_global_accuracy", state.GlobalAccuracy, nil)
		e.metrics.SetGauge("fedsim_backdoor_asr", state.BackdoorSuccessRate, nil)
		for _, finding := range verdict.Findings {
			e.metrics.IncrementCounter("fedsim_rejections_total", map[string]string{"mechanism": finding.Mechanism})
		}
		if cfg.StiffnessMask {
			for _, c := range state.Clients {
				e.metrics.ObserveHistogram("fedsim_stiffness_score", c.StiffnessScore, nil)
			}
		}
	}

	if e.ledger != nil && verdict.Triggered {
		e.ledger.Record(RoundEvent{
			SessionID: e.sessionID,
			Round:     state.Round,
			Findings:  verdict.Findings,
		})
	}

	if e.history != nil && len(state.History) > 0 {
		point := state.History[len(state.History)-1]
		if err := e.history.SaveRound(e.sessionID, point); err != nil {
			// The in-memory state stays authoritative; persistence
			// failures never abort a round.
			e.logger.Error().Err(err).Int("round", point.Round).Msg("failed to persist round history")
		}
	}

	e.logger.Debug().
		Int("round", state.Round).
		Float64("accuracy", state.GlobalAccuracy).
		Float64("asr", state.BackdoorSuccessRate).
		Int("rejected", len(verdict.Findings)).
		Msg("round advanced")
}
