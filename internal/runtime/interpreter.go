package runtime

import (
	"fmt"
	"log/slog"

	"github.com/roach88/aegis/internal/lang"
)

// DefaultValueBound is the default magnitude bound for arithmetic
// results. Anything whose absolute value exceeds it fails with
// ArithmeticOverflow.
const DefaultValueBound int64 = 1 << 62

// Interpreter walks an AST against a Context, executing statements in
// source order and reporting every statement and sub-expression to the
// monitor before committing its effect. A monitor violation mid-statement
// halts execution immediately without committing that statement's side
// effect.
type Interpreter struct {
	monitor *Monitor
	bound   int64
}

// NewInterpreter creates an interpreter reporting to the given monitor.
// A bound <= 0 selects DefaultValueBound.
func NewInterpreter(monitor *Monitor, bound int64) *Interpreter {
	if bound <= 0 {
		bound = DefaultValueBound
	}
	return &Interpreter{monitor: monitor, bound: bound}
}

// Bound returns the configured magnitude bound.
func (it *Interpreter) Bound() int64 {
	return it.bound
}

// Run executes a program against the context. On violation the returned
// error is the *Violation, already accumulated in the monitor.
func (it *Interpreter) Run(prog *lang.Program, ctx *Context) error {
	for _, stmt := range prog.Stmts {
		if err := it.execStmt(stmt, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) execStmt(stmt lang.Stmt, ctx *Context) error {
	switch s := stmt.(type) {
	case *lang.AssignStmt:
		value, err := it.evalExpr(s.Expr, ctx)
		if err != nil {
			return err
		}
		// Report before committing: a monitor violation here leaves the
		// binding untouched.
		if v := it.monitor.Record(OpAssign, s.Name); v != nil {
			return v
		}
		ctx.Set(s.Name, value)
		return nil

	case *lang.PrintStmt:
		if v := it.monitor.Record(OpPrint, s.Name); v != nil {
			return v
		}
		value, ok := ctx.Get(s.Name)
		if !ok {
			// The front end's analysis should have rejected this
			// program; fail safely rather than crash.
			slog.Warn("undefined variable reached execution",
				"variable", s.Name,
				"identity", ctx.Identity(),
			)
			return it.monitor.RecordFault(&Violation{
				Kind:     KindUndefinedVariable,
				Message:  fmt.Sprintf("undefined variable %q at %s", s.Name, s.Position()),
				Snapshot: ctx.Variables(),
			})
		}
		ctx.Emit(fmt.Sprintf("%d", value))
		return nil

	default:
		return it.monitor.RecordFault(&Violation{
			Kind:    KindUnauthorizedOperation,
			Message: fmt.Sprintf("unknown statement type %T", stmt),
		})
	}
}

func (it *Interpreter) evalExpr(expr lang.Expr, ctx *Context) (int64, error) {
	switch e := expr.(type) {
	case *lang.IntLit:
		return e.Value, nil

	case *lang.Ident:
		value, ok := ctx.Get(e.Name)
		if !ok {
			return 0, it.monitor.RecordFault(&Violation{
				Kind:     KindUndefinedVariable,
				Message:  fmt.Sprintf("undefined variable %q at %s", e.Name, e.Position()),
				Snapshot: ctx.Variables(),
			})
		}
		return value, nil

	case *lang.BinaryExpr:
		// Operands evaluate left-to-right.
		left, err := it.evalExpr(e.Left, ctx)
		if err != nil {
			return 0, err
		}
		right, err := it.evalExpr(e.Right, ctx)
		if err != nil {
			return 0, err
		}

		if v := it.monitor.Record(OpArithmetic, string(e.Op)); v != nil {
			return 0, v
		}

		result, fault := Apply(e.Op, left, right, it.bound)
		if fault != nil {
			fault.Snapshot = ctx.Variables()
			return 0, it.monitor.RecordFault(fault)
		}
		return result, nil

	default:
		return 0, it.monitor.RecordFault(&Violation{
			Kind:    KindUnauthorizedOperation,
			Message: fmt.Sprintf("unknown expression type %T", expr),
		})
	}
}

// Apply performs one binary arithmetic operation under the magnitude
// bound. Both execution paths use it, which is what keeps the optimized
// replay byte-identical to interpretation.
func Apply(op lang.Op, left, right, bound int64) (int64, *Violation) {
	var result int64
	overflow := false

	switch op {
	case lang.OpAdd:
		result = left + right
		overflow = (left^result)&(right^result) < 0

	case lang.OpSub:
		result = left - right
		overflow = (left^right)&(left^result) < 0

	case lang.OpMul:
		result = left * right
		if left != 0 {
			overflow = result/left != right || (left == -1 && right == minInt64)
		}

	case lang.OpDiv:
		if right == 0 {
			return 0, &Violation{
				Kind:    KindDivisionByZero,
				Message: fmt.Sprintf("division by zero: %d / 0", left),
				Detail:  map[string]string{"dividend": fmt.Sprintf("%d", left)},
			}
		}
		if left == minInt64 && right == -1 {
			overflow = true
		} else {
			result = left / right
		}

	default:
		return 0, &Violation{
			Kind:    KindUnauthorizedOperation,
			Message: fmt.Sprintf("unknown operator %q", op),
		}
	}

	if overflow || result > bound || result < -bound {
		return 0, &Violation{
			Kind:    KindArithmeticOverflow,
			Message: fmt.Sprintf("result of %d %s %d exceeds magnitude bound %d", left, op, right, bound),
			Detail: map[string]string{
				"operator": string(op),
				"left":     fmt.Sprintf("%d", left),
				"right":    fmt.Sprintf("%d", right),
				"bound":    fmt.Sprintf("%d", bound),
			},
		}
	}

	return result, nil
}

const minInt64 = -1 << 63
