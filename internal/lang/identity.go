package lang

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainProgram is the domain prefix for program identity hashing.
// The version suffix enables future algorithm migration.
const DomainProgram = "aegis/program/v1"

// Identity computes the content-addressed identity of a program: the
// SHA-256 of its canonical AST encoding with domain separation. The
// identity is the sole key correlating trust, cache, and violation
// history across invocations.
//
// Hashing the AST rather than the source text makes the identity
// whitespace- and comment-insensitive: two renderings of the same
// program always collide, distinct programs never do.
func Identity(prog *Program) (string, error) {
	canonical, err := MarshalCanonical(encodeProgram(prog))
	if err != nil {
		return "", fmt.Errorf("program identity: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustIdentity is like Identity but panics on error.
// Use only in tests or when the AST is known to be well-formed.
func MustIdentity(prog *Program) string {
	id, err := Identity(prog)
	if err != nil {
		panic(err)
	}
	return id
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// encodeProgram lowers the AST into the canonical value domain.
// Source positions are deliberately excluded: identity depends on
// structure only.
func encodeProgram(prog *Program) map[string]any {
	stmts := make([]any, len(prog.Stmts))
	for i, stmt := range prog.Stmts {
		stmts[i] = encodeStmt(stmt)
	}
	return map[string]any{"stmts": stmts}
}

func encodeStmt(stmt Stmt) map[string]any {
	switch s := stmt.(type) {
	case *AssignStmt:
		return map[string]any{
			"kind": "assign",
			"name": s.Name,
			"expr": encodeExpr(s.Expr),
		}
	case *PrintStmt:
		return map[string]any{
			"kind": "print",
			"name": s.Name,
		}
	default:
		panic(fmt.Sprintf("unknown statement type: %T", stmt))
	}
}

func encodeExpr(expr Expr) map[string]any {
	switch e := expr.(type) {
	case *BinaryExpr:
		return map[string]any{
			"kind":  "binop",
			"op":    string(e.Op),
			"left":  encodeExpr(e.Left),
			"right": encodeExpr(e.Right),
		}
	case *Ident:
		return map[string]any{
			"kind": "ident",
			"name": e.Name,
		}
	case *IntLit:
		return map[string]any{
			"kind":  "int",
			"value": e.Value,
		}
	default:
		panic(fmt.Sprintf("unknown expression type: %T", expr))
	}
}
