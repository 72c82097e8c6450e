package engine

import (
	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/runtime"
)

// State is a node of the per-invocation state machine.
type State string

const (
	StateStart        State = "start"
	StateAnalyzed     State = "analyzed"
	StateInterpreting State = "interpreting"
	StateOptimizing   State = "optimizing"
	StateCompleted    State = "completed"
	StateViolated     State = "violated"
	StateRolledBack   State = "rolled_back"

	// StateFailed is the terminal state for programs rejected by static
	// analysis. No execution is attempted.
	StateFailed State = "failed"
)

// Terminal reports whether the state ends an invocation.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateRolledBack, StateFailed:
		return true
	}
	return false
}

// Result is what one invocation hands back to the caller.
//
// Variables and Output are the final Execution Context contents.
// TrustScore is the persisted score after this run's ledger update.
// SpeedMultiplier is 1.0 on the interpreted path and the artifact's
// reporting annotation on the optimized path; it never influenced the
// run itself.
type Result struct {
	RunID    string
	Identity string
	State    State
	Mode     runtime.Mode

	Variables map[string]int64
	Output    []string
	Metrics   runtime.Metrics

	TrustScore     float64
	TrustLevel     string
	ExecutionCount int

	SpeedMultiplier float64

	// Violation is set when State is RolledBack.
	Violation *runtime.Violation

	// Defects is set when State is Failed.
	Defects []lang.Defect
}

// Clean reports whether the invocation completed without violations or
// analysis defects.
func (r *Result) Clean() bool {
	return r.State == StateCompleted
}
