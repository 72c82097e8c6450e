package trust

import "time"

// EventKind identifies a trust-affecting event.
type EventKind string

const (
	// EventIncrement records one clean execution's score increase.
	EventIncrement EventKind = "increment"

	// EventReset records a violation-driven reset to zero.
	EventReset EventKind = "reset"
)

// Event is one entry in a record's trust history.
type Event struct {
	Kind  EventKind
	At    time.Time
	Score float64 // resulting score after the event
}

// Record is the durable trust state for one code identity.
//
// Score is exactly 0.0 immediately after creation and immediately after
// any reset; between resets it only ever increases, by a fixed increment
// per clean execution.
type Record struct {
	Identity       string
	Score          float64
	ExecutionCount int
	LastViolation  *time.Time
	History        []Event
}

// NewRecord creates a fresh untrusted record at score 0.0.
func NewRecord(identity string) *Record {
	return &Record{Identity: identity}
}

// Trust level bands, for reporting only. Promotion is strictly
// score >= threshold; these names never influence control flow.
const (
	LevelNone   = "NONE"
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"
)

// Level returns the descriptive trust band for a score.
func Level(score float64) string {
	switch {
	case score >= 2.0:
		return LevelHigh
	case score >= 1.0:
		return LevelMedium
	case score >= 0.5:
		return LevelLow
	default:
		return LevelNone
	}
}

// RollbackEvent is the audit entry emitted by the rollback coordinator:
// what was violated, for which identity, and how much trust was erased.
type RollbackEvent struct {
	Identity      string
	ViolationKind string
	Message       string
	PriorScore    float64 // score immediately before the reset
	At            time.Time
}
