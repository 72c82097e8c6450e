package lang

import (
	"fmt"
	"strings"
)

// Format renders a program in canonical form: one statement per line,
// single spaces around operators, parentheses only where precedence
// requires them. Formatting a program and re-parsing it yields an AST
// with the same identity.
func Format(prog *Program) string {
	var b strings.Builder
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *AssignStmt:
			b.WriteString(s.Name)
			b.WriteString(" = ")
			formatExpr(&b, s.Expr, 0)
		case *PrintStmt:
			b.WriteString("print ")
			b.WriteString(s.Name)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// formatExpr writes an expression, parenthesizing children whose operator
// binds looser than the surrounding context.
func formatExpr(b *strings.Builder, expr Expr, parent int) {
	switch e := expr.(type) {
	case *IntLit:
		fmt.Fprintf(b, "%d", e.Value)

	case *Ident:
		b.WriteString(e.Name)

	case *BinaryExpr:
		prec := e.Op.Precedence()
		needParens := prec < parent
		if needParens {
			b.WriteByte('(')
		}
		formatExpr(b, e.Left, prec)
		b.WriteByte(' ')
		b.WriteString(string(e.Op))
		b.WriteByte(' ')
		// The right child needs parens at equal precedence too:
		// a - (b - c) is not a - b - c.
		formatExpr(b, e.Right, prec+1)
		if needParens {
			b.WriteByte(')')
		}
	}
}
