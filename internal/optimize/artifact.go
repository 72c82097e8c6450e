// Package optimize holds the optimized execution path: compiling an AST
// into a Compiled Artifact and replaying cached artifacts under the
// runtime monitor.
//
// The artifact is a behavioral transform, not code generation. Constant
// sub-expressions are pre-evaluated and dead assignments are marked
// eliminable, but replay must produce byte-identical variable bindings
// and output to interpreting the original AST. That contract is what
// lets the trust ledger treat both paths as the same program.
package optimize

import (
	"time"

	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/runtime"
)

// Artifact is the cache-resident compiled form of one program.
//
// SpeedMultiplier is a synthetic reporting annotation derived from how
// much the compile simplified; it never influences control flow or
// results.
type Artifact struct {
	Identity string
	Program  *lang.Program

	FoldedOps       int
	EliminableStmts int
	SpeedMultiplier float64
	CompiledAt      time.Time
}

// Compile derives an artifact from an AST. Constant sub-expressions
// with no variable dependency are folded under the same magnitude bound
// the runtime enforces; a constant expression that would fault is left
// unfolded so replay raises the identical violation. Assignments whose
// variable is never read afterwards are counted as eliminable but still
// replayed, because the equivalence contract covers variable bindings,
// not just output. Prints are never eliminable.
func Compile(identity string, prog *lang.Program, bound int64) *Artifact {
	if bound <= 0 {
		bound = runtime.DefaultValueBound
	}

	folded := 0
	stmts := make([]lang.Stmt, len(prog.Stmts))
	for i, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *lang.AssignStmt:
			expr, n := foldExpr(s.Expr, bound)
			folded += n
			stmts[i] = &lang.AssignStmt{Name: s.Name, Expr: expr, Pos_: s.Pos_}
		default:
			stmts[i] = stmt
		}
	}

	compiled := &lang.Program{Stmts: stmts}
	eliminable := countEliminable(compiled)

	return &Artifact{
		Identity:        identity,
		Program:         compiled,
		FoldedOps:       folded,
		EliminableStmts: eliminable,
		SpeedMultiplier: speedMultiplier(compiled, folded, eliminable),
		CompiledAt:      time.Now().UTC(),
	}
}

// Replay executes the artifact against the context under the monitor,
// exactly as the interpreter would run the compiled program. The
// optimized path is not exempt from monitoring.
func (a *Artifact) Replay(ctx *runtime.Context, monitor *runtime.Monitor, bound int64) error {
	return runtime.NewInterpreter(monitor, bound).Run(a.Program, ctx)
}

// foldExpr pre-evaluates constant sub-expressions bottom-up. A constant
// operation that faults under the bound is left in place; the fault
// belongs to the run, not the compile.
func foldExpr(expr lang.Expr, bound int64) (lang.Expr, int) {
	b, ok := expr.(*lang.BinaryExpr)
	if !ok {
		return expr, 0
	}

	left, nl := foldExpr(b.Left, bound)
	right, nr := foldExpr(b.Right, bound)
	folded := nl + nr

	ll, lok := left.(*lang.IntLit)
	rl, rok := right.(*lang.IntLit)
	if lok && rok {
		if result, fault := runtime.Apply(b.Op, ll.Value, rl.Value, bound); fault == nil {
			return &lang.IntLit{Value: result, Pos_: b.Pos_}, folded + 1
		}
	}

	if nl+nr == 0 {
		return b, 0
	}
	return &lang.BinaryExpr{Left: left, Op: b.Op, Right: right, Pos_: b.Pos_}, folded
}

// countEliminable runs a backward liveness pass over the straight-line
// program and counts assignments whose variable is dead at that point.
func countEliminable(prog *lang.Program) int {
	live := make(map[string]bool)
	eliminable := 0

	for i := len(prog.Stmts) - 1; i >= 0; i-- {
		switch s := prog.Stmts[i].(type) {
		case *lang.PrintStmt:
			live[s.Name] = true
		case *lang.AssignStmt:
			if !live[s.Name] {
				eliminable++
			}
			delete(live, s.Name)
			markReads(s.Expr, live)
		}
	}
	return eliminable
}

func markReads(expr lang.Expr, live map[string]bool) {
	switch e := expr.(type) {
	case *lang.Ident:
		live[e.Name] = true
	case *lang.BinaryExpr:
		markReads(e.Left, live)
		markReads(e.Right, live)
	}
}

// speedMultiplier synthesizes the reporting-only multiplier from the
// fraction of work the compile removed or could remove.
func speedMultiplier(prog *lang.Program, folded, eliminable int) float64 {
	total := len(prog.Stmts) + folded
	if total == 0 {
		return 1.0
	}
	return 1.0 + float64(folded+eliminable)/float64(total)
}
