package runtime

import (
	"errors"
	"fmt"
)

// ViolationKind categorizes execution policy breaches.
type ViolationKind string

const (
	// KindDivisionByZero indicates a division whose divisor evaluated to zero.
	KindDivisionByZero ViolationKind = "DIVISION_BY_ZERO"

	// KindArithmeticOverflow indicates a result beyond the configured
	// magnitude bound. This is a security boundary, not a numeric
	// convenience: results never wrap or saturate.
	KindArithmeticOverflow ViolationKind = "ARITHMETIC_OVERFLOW"

	// KindUndefinedVariable indicates a read of an unbound variable at
	// execution time. The front end should have rejected the program;
	// this is the defensive fallback.
	KindUndefinedVariable ViolationKind = "UNDEFINED_VARIABLE"

	// KindResourceExceeded indicates the instruction-count ceiling was hit.
	KindResourceExceeded ViolationKind = "RESOURCE_EXCEEDED"

	// KindUnauthorizedOperation indicates an operation kind outside the
	// allowed set {assign, arithmetic, print}.
	KindUnauthorizedOperation ViolationKind = "UNAUTHORIZED_OPERATION"
)

// Violation is a detected breach of the execution policy. Violations are
// explicit error values propagated through the orchestrator's state
// transitions, never unwound via panic.
type Violation struct {
	// Kind identifies the violation category.
	Kind ViolationKind

	// Message is a human-readable description.
	Message string

	// Identity is the code identity of the offending program.
	Identity string

	// Snapshot captures the variable bindings at the point of failure.
	Snapshot map[string]int64

	// Detail contains additional context (operator, operands, limits).
	Detail map[string]string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v.Identity != "" {
		return fmt.Sprintf("%s: %s (identity=%.12s)", v.Kind, v.Message, v.Identity)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Security reports whether the violation is a SecurityViolation (always
// triggers rollback) as opposed to a RuntimeFault.
func (v *Violation) Security() bool {
	return v.Kind == KindResourceExceeded || v.Kind == KindUnauthorizedOperation
}

// IsViolation returns true if the error is (or wraps) a Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// AsViolation extracts a Violation from an error chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
