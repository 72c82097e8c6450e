package lang

import "fmt"

// Pos is a source position, 1-based line and column.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Program is the root of a parsed AEGIS program: an ordered list of
// statements executed in source order.
type Program struct {
	Stmts []Stmt
}

// Stmt is a sealed interface over the two statement kinds.
// Only AssignStmt and PrintStmt implement it.
type Stmt interface {
	stmt()
	Position() Pos
}

// Expr is a sealed interface over the three expression kinds.
// Only BinaryExpr, Ident, and IntLit implement it.
type Expr interface {
	expr()
	Position() Pos
}

// AssignStmt is a variable assignment: name = expression.
// Assignment creates or overwrites the binding (last write wins).
type AssignStmt struct {
	Name string
	Expr Expr
	Pos_ Pos
}

func (*AssignStmt) stmt()           {}
func (s *AssignStmt) Position() Pos { return s.Pos_ }

// PrintStmt emits the value of a variable as one output line.
type PrintStmt struct {
	Name string
	Pos_ Pos
}

func (*PrintStmt) stmt()           {}
func (s *PrintStmt) Position() Pos { return s.Pos_ }

// Op is a binary arithmetic operator.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
)

// Precedence returns the binding strength of the operator.
// Multiplicative operators bind tighter than additive ones.
func (op Op) Precedence() int {
	switch op {
	case OpMul, OpDiv:
		return 2
	case OpAdd, OpSub:
		return 1
	default:
		return 0
	}
}

// BinaryExpr is a binary arithmetic operation, evaluated left-to-right.
type BinaryExpr struct {
	Left  Expr
	Op    Op
	Right Expr
	Pos_  Pos
}

func (*BinaryExpr) expr()           {}
func (e *BinaryExpr) Position() Pos { return e.Pos_ }

// Ident is a variable reference.
type Ident struct {
	Name string
	Pos_ Pos
}

func (*Ident) expr()           {}
func (e *Ident) Position() Pos { return e.Pos_ }

// IntLit is an integer literal. Values are always int64.
type IntLit struct {
	Value int64
	Pos_  Pos
}

func (*IntLit) expr()           {}
func (e *IntLit) Position() Pos { return e.Pos_ }
