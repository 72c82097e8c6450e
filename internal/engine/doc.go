// Package engine is the per-invocation orchestrator: it sequences
// analysis, the trust-gated choice between the interpreted and
// optimized paths, clean-execution scoring, and violation rollback.
//
// Each invocation runs the state machine
//
//	Start -> Analyzed -> {Interpreting | Optimizing} ->
//	  {Completed | Violated} -> (if Violated: RolledBack)
//
// with a terminal Failed state when static analysis reports defects
// (no execution is attempted). Completed and RolledBack are the only
// terminal states a successful-or-violating run exposes; each carries
// the final variables and output, and RolledBack carries the violation.
package engine
