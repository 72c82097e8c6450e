package runtime

import (
	"fmt"
	"time"
)

// OpKind identifies an operation reported to the monitor.
type OpKind string

const (
	OpAssign     OpKind = "assign"
	OpArithmetic OpKind = "arithmetic"
	OpPrint      OpKind = "print"
)

// DefaultInstructionLimit is the default instruction-count ceiling.
// It is a deterministic, input-independent halting bound substituting for
// a wall-clock timeout: the language has no loops, only arbitrarily long
// programs.
const DefaultInstructionLimit = 1000

// wordSize is the per-variable memory estimate in bytes.
const wordSize = 8

// Metrics is the per-run accumulator snapshot: instruction count, memory
// footprint estimate, wall-clock duration, operations performed, and the
// violations detected (empty on a clean run).
type Metrics struct {
	Instructions int
	MemoryBytes  int64
	Duration     time.Duration
	Operations   []OpKind
	Violations   []*Violation
}

// Clean reports whether the run finished without violations.
func (m Metrics) Clean() bool {
	return len(m.Violations) == 0
}

// Monitor accumulates metrics for one run and evaluates violation rules
// synchronously as operations are reported. Both execution paths report
// through the same monitor; the optimized path is not exempt.
//
// The monitor is stateless between runs: Start resets everything, and no
// cross-run memory exists beyond the Metrics handed to the trust ledger.
type Monitor struct {
	limit   int
	ctx     *Context
	started time.Time
	metrics Metrics
}

// NewMonitor creates a monitor with the given instruction-count ceiling.
// A limit <= 0 selects DefaultInstructionLimit.
func NewMonitor(limit int) *Monitor {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	return &Monitor{limit: limit}
}

// Limit returns the configured instruction ceiling.
func (m *Monitor) Limit() int {
	return m.limit
}

// Start binds a fresh metrics accumulator to one run.
func (m *Monitor) Start(ctx *Context) {
	m.ctx = ctx
	m.started = time.Now()
	m.metrics = Metrics{}
}

// Record appends an operation to the metrics and evaluates the violation
// rules, in order: instruction ceiling, then allowed operation set.
// Returns the violation (already accumulated) if a rule trips; the caller
// must halt without committing the operation's side effect.
func (m *Monitor) Record(op OpKind, detail string) *Violation {
	m.metrics.Instructions++
	m.metrics.Operations = append(m.metrics.Operations, op)

	if m.metrics.Instructions > m.limit {
		return m.fail(&Violation{
			Kind:    KindResourceExceeded,
			Message: fmt.Sprintf("instruction count exceeded limit (%d > %d)", m.metrics.Instructions, m.limit),
			Detail: map[string]string{
				"instructions": fmt.Sprintf("%d", m.metrics.Instructions),
				"limit":        fmt.Sprintf("%d", m.limit),
				"operation":    string(op),
			},
		})
	}

	switch op {
	case OpAssign, OpArithmetic, OpPrint:
	default:
		return m.fail(&Violation{
			Kind:    KindUnauthorizedOperation,
			Message: fmt.Sprintf("operation kind %q is not in the allowed set", op),
			Detail:  map[string]string{"operation": string(op), "detail": detail},
		})
	}

	return nil
}

// RecordFault wraps a domain error raised by the execution path (division
// by zero, overflow, undefined variable) as a monitor violation.
func (m *Monitor) RecordFault(v *Violation) *Violation {
	return m.fail(v)
}

// Check returns the violations accumulated so far. An empty list at run
// end means the run was clean.
func (m *Monitor) Check() []*Violation {
	return m.metrics.Violations
}

// Metrics finalizes and returns the run's metrics snapshot. The memory
// footprint is estimated as live variable count times the word size.
func (m *Monitor) Metrics() Metrics {
	m.metrics.Duration = time.Since(m.started)
	if m.ctx != nil {
		m.metrics.MemoryBytes = int64(m.ctx.VarCount()) * wordSize
	}
	return m.metrics
}

// fail stamps the violation with run context and accumulates it.
func (m *Monitor) fail(v *Violation) *Violation {
	if m.ctx != nil {
		if v.Identity == "" {
			v.Identity = m.ctx.Identity()
		}
		if v.Snapshot == nil {
			v.Snapshot = m.ctx.Variables()
		}
	}
	m.metrics.Violations = append(m.metrics.Violations, v)
	return v
}
