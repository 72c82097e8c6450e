package lang

import (
	"fmt"
	"strconv"
)

// TokenKind identifies a lexical token class.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNewline
	TokenIdent
	TokenInt
	TokenPrint
	TokenAssign
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenLParen
	TokenRParen
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "newline"
	case TokenIdent:
		return "identifier"
	case TokenInt:
		return "integer"
	case TokenPrint:
		return "print"
	case TokenAssign:
		return "'='"
	case TokenPlus:
		return "'+'"
	case TokenMinus:
		return "'-'"
	case TokenStar:
		return "'*'"
	case TokenSlash:
		return "'/'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return "unknown"
	}
}

// Token is one lexical token with its source position.
type Token struct {
	Kind TokenKind
	Text string
	Int  int64 // populated for TokenInt
	Pos  Pos
}

// LexicalError reports an invalid character or malformed literal.
type LexicalError struct {
	Pos     Pos
	Message string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("%s: lexical error: %s", e.Pos, e.Message)
}

// Lex tokenizes AEGIS source text.
//
// The language is line-oriented: statements are separated by newlines,
// which are emitted as TokenNewline. Spaces and tabs are insignificant.
// A '#' starts a comment running to end of line.
func Lex(src string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1

	i := 0
	for i < len(src) {
		c := src[i]
		pos := Pos{Line: line, Col: col}

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
			col++

		case c == '\n':
			tokens = append(tokens, Token{Kind: TokenNewline, Text: "\n", Pos: pos})
			i++
			line++
			col = 1

		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
				col++
			}
			// A comment-only line contributes no tokens; swallow its
			// terminating newline so the stream carries no leading or
			// doubled separators. A trailing comment keeps the newline
			// that ends its statement.
			if i < len(src) && (len(tokens) == 0 || tokens[len(tokens)-1].Kind == TokenNewline) {
				i++
				line++
				col = 1
			}

		case c == '=':
			tokens = append(tokens, Token{Kind: TokenAssign, Text: "=", Pos: pos})
			i++
			col++

		case c == '+':
			tokens = append(tokens, Token{Kind: TokenPlus, Text: "+", Pos: pos})
			i++
			col++

		case c == '-':
			tokens = append(tokens, Token{Kind: TokenMinus, Text: "-", Pos: pos})
			i++
			col++

		case c == '*':
			tokens = append(tokens, Token{Kind: TokenStar, Text: "*", Pos: pos})
			i++
			col++

		case c == '/':
			tokens = append(tokens, Token{Kind: TokenSlash, Text: "/", Pos: pos})
			i++
			col++

		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: pos})
			i++
			col++

		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: pos})
			i++
			col++

		case isDigit(c):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
				col++
			}
			text := src[start:i]
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, &LexicalError{Pos: pos, Message: fmt.Sprintf("integer literal %q out of range", text)}
			}
			tokens = append(tokens, Token{Kind: TokenInt, Text: text, Int: n, Pos: pos})

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
				col++
			}
			text := src[start:i]
			kind := TokenIdent
			if text == "print" {
				kind = TokenPrint
			}
			tokens = append(tokens, Token{Kind: kind, Text: text, Pos: pos})

		default:
			return nil, &LexicalError{Pos: pos, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: Pos{Line: line, Col: col}})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
