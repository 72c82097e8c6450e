package lang

import "fmt"

// Defect is a static-analysis finding that blocks execution.
// Programs with defects never reach the engine (no partial execution).
type Defect struct {
	Pos     Pos
	Name    string // offending variable, if any
	Message string
}

func (d Defect) Error() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Message)
}

// Analyze checks a program for use-before-assignment over straight-line
// flow. The language has no control flow, so a variable is defined for a
// statement iff some earlier statement assigned it.
//
// Returns the full defect list; an empty list means the program is safe
// to execute.
func Analyze(prog *Program) []Defect {
	defined := make(map[string]bool)
	var defects []Defect

	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *AssignStmt:
			defects = append(defects, checkExpr(s.Expr, defined)...)
			// The binding exists only after its right-hand side is
			// evaluated: x = x + 1 with undefined x is a defect.
			defined[s.Name] = true

		case *PrintStmt:
			if !defined[s.Name] {
				defects = append(defects, Defect{
					Pos:     s.Position(),
					Name:    s.Name,
					Message: fmt.Sprintf("undefined variable %q", s.Name),
				})
			}
		}
	}

	return defects
}

func checkExpr(expr Expr, defined map[string]bool) []Defect {
	switch e := expr.(type) {
	case *Ident:
		if !defined[e.Name] {
			return []Defect{{
				Pos:     e.Position(),
				Name:    e.Name,
				Message: fmt.Sprintf("undefined variable %q", e.Name),
			}}
		}
		return nil

	case *BinaryExpr:
		defects := checkExpr(e.Left, defined)
		return append(defects, checkExpr(e.Right, defined)...)

	default: // *IntLit
		return nil
	}
}
