package trust

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roach88/aegis/internal/runtime"
)

// Default scoring parameters.
const (
	// DefaultIncrement is the score delta per clean execution.
	DefaultIncrement = 0.1

	// DefaultThreshold is the score at which an identity becomes
	// eligible for the optimized path.
	DefaultThreshold = 1.0
)

// Storage persists trust records per identity. Implemented by
// store.Store (SQLite, production) and store.Memory (tests).
//
// Save must apply the record update and the history event atomically and
// durably before returning: a crash must never resurrect a reset score.
type Storage interface {
	// Load returns the persisted record for an identity, whether one
	// exists, and any storage error.
	Load(ctx context.Context, identity string) (*Record, bool, error)

	// Save upserts the record and appends one history event, atomically.
	Save(ctx context.Context, rec *Record, ev Event) error
}

// Ledger owns all trust records and is the only component permitted to
// mutate them. Every mutation is read-modify-write atomic per identity:
// a per-identity mutex arena guards against a clean-execution increment
// racing a violation reset, while unrelated identities never serialize
// against each other.
type Ledger struct {
	storage   Storage
	increment float64
	threshold float64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIncrement sets the score delta per clean execution.
func WithIncrement(delta float64) Option {
	return func(l *Ledger) {
		if delta > 0 {
			l.increment = delta
		}
	}
}

// WithThreshold sets the promotion threshold.
func WithThreshold(threshold float64) Option {
	return func(l *Ledger) {
		if threshold > 0 {
			l.threshold = threshold
		}
	}
}

// NewLedger creates a ledger over the given storage.
func NewLedger(storage Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage:   storage,
		increment: DefaultIncrement,
		threshold: DefaultThreshold,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Increment returns the configured per-run score delta.
func (l *Ledger) Increment() float64 {
	return l.increment
}

// Threshold returns the configured promotion threshold.
func (l *Ledger) Threshold() float64 {
	return l.threshold
}

// Load returns the record for an identity, or a fresh record at score
// 0.0 if none exists or the store is unreadable. Storage failures
// fail-open to the safe, untrusted state; they never abort the run.
func (l *Ledger) Load(ctx context.Context, identity string) *Record {
	mu := l.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()
	return l.load(ctx, identity)
}

// load reads without taking the identity lock. Callers must hold it.
func (l *Ledger) load(ctx context.Context, identity string) *Record {
	rec, found, err := l.storage.Load(ctx, identity)
	if err != nil {
		slog.Warn("trust store unreadable, treating identity as untrusted",
			"identity", identity,
			"error", err,
		)
		return NewRecord(identity)
	}
	if !found {
		return NewRecord(identity)
	}
	return rec
}

// RecordCleanExecution increments the identity's score by the configured
// delta, bumps its execution count, appends an increment event, and
// persists before returning. The returned record reflects the update
// even when persistence failed (the error reports the infrastructure
// fault; the caller decides whether to surface it).
func (l *Ledger) RecordCleanExecution(ctx context.Context, identity string, metrics runtime.Metrics) (*Record, error) {
	mu := l.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	rec := l.load(ctx, identity)
	rec.Score = l.quantize(rec.Score + l.increment)
	rec.ExecutionCount++

	ev := Event{Kind: EventIncrement, At: time.Now().UTC(), Score: rec.Score}
	rec.History = append(rec.History, ev)

	if err := l.storage.Save(ctx, rec, ev); err != nil {
		return rec, fmt.Errorf("persist clean execution for %.12s: %w", identity, err)
	}

	slog.Debug("trust incremented",
		"identity", identity,
		"score", rec.Score,
		"executions", rec.ExecutionCount,
		"instructions", metrics.Instructions,
	)
	return rec, nil
}

// RecordViolation unconditionally resets the identity's score to 0.0,
// stamps the violation time, appends a reset event, and persists before
// returning. Returns the score immediately before the reset for the
// rollback audit trail.
func (l *Ledger) RecordViolation(ctx context.Context, identity string, v *runtime.Violation) (priorScore float64, rec *Record, err error) {
	mu := l.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	rec = l.load(ctx, identity)
	priorScore = rec.Score

	now := time.Now().UTC()
	rec.Score = 0.0
	rec.LastViolation = &now

	ev := Event{Kind: EventReset, At: now, Score: 0.0}
	rec.History = append(rec.History, ev)

	if err := l.storage.Save(ctx, rec, ev); err != nil {
		return priorScore, rec, fmt.Errorf("persist violation for %.12s: %w", identity, err)
	}

	slog.Info("trust reset",
		"identity", identity,
		"prior_score", priorScore,
		"violation", v.Kind,
	)
	return priorScore, rec, nil
}

// IsPromotable reports whether the identity's persisted score has
// reached the promotion threshold.
func (l *Ledger) IsPromotable(ctx context.Context, identity string) bool {
	return l.Load(ctx, identity).Score >= l.threshold
}

// quantize snaps a score to the nearest multiple of the increment.
// Raw float64 accumulation drifts below the exact multiple (ten 0.1
// steps sum to just under 1.0), which would hold an identity under the
// promotion threshold forever.
func (l *Ledger) quantize(score float64) float64 {
	return math.Round(score/l.increment) * l.increment
}

// lockFor returns the mutex guarding one identity's record, creating it
// on first use. The arena itself is guarded by l.mu; entries are never
// removed (the identity population is bounded by distinct programs seen).
func (l *Ledger) lockFor(identity string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.locks[identity]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[identity] = mu
	}
	return mu
}
