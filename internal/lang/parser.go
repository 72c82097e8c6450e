package lang

import "fmt"

// SyntaxError reports a grammar violation with its source position.
type SyntaxError struct {
	Pos     Pos
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Message)
}

// Parse lexes and parses AEGIS source text into a Program.
func Parse(src string) (*Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

// parser is a recursive-descent parser over the token stream.
//
// Grammar:
//
//	program   = { statement newline } EOF
//	statement = ident "=" expr | "print" ident
//	expr      = term { ("+" | "-") term }
//	term      = factor { ("*" | "/") factor }
//	factor    = int | ident | "(" expr ")" | "-" int
type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return Token{}, &SyntaxError{
			Pos:     tok.Pos,
			Message: fmt.Sprintf("expected %s, found %s", kind, describe(tok)),
		}
	}
	return p.next(), nil
}

func (p *parser) skipNewlines() {
	for p.peek().Kind == TokenNewline {
		p.next()
	}
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}

	p.skipNewlines()
	for p.peek().Kind != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)

		// Statements end at a newline or EOF.
		switch p.peek().Kind {
		case TokenNewline:
			p.skipNewlines()
		case TokenEOF:
		default:
			tok := p.peek()
			return nil, &SyntaxError{
				Pos:     tok.Pos,
				Message: fmt.Sprintf("expected end of statement, found %s", describe(tok)),
			}
		}
	}

	return prog, nil
}

func (p *parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenPrint:
		p.next()
		name, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		return &PrintStmt{Name: name.Text, Pos_: tok.Pos}, nil

	case TokenIdent:
		p.next()
		if _, err := p.expect(TokenAssign); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: tok.Text, Expr: expr, Pos_: tok.Pos}, nil

	default:
		return nil, &SyntaxError{
			Pos:     tok.Pos,
			Message: fmt.Sprintf("expected assignment or print statement, found %s", describe(tok)),
		}
	}
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		var op Op
		switch tok.Kind {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.next()

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right, Pos_: tok.Pos}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		var op Op
		switch tok.Kind {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		default:
			return left, nil
		}
		p.next()

		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right, Pos_: tok.Pos}
	}
}

func (p *parser) parseFactor() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenInt:
		p.next()
		return &IntLit{Value: tok.Int, Pos_: tok.Pos}, nil

	case TokenIdent:
		p.next()
		return &Ident{Name: tok.Text, Pos_: tok.Pos}, nil

	case TokenMinus:
		// Negative integer literal. General unary minus is not in the
		// grammar - only literals may be negated.
		p.next()
		lit, err := p.expect(TokenInt)
		if err != nil {
			return nil, err
		}
		return &IntLit{Value: -lit.Int, Pos_: tok.Pos}, nil

	case TokenLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, &SyntaxError{
			Pos:     tok.Pos,
			Message: fmt.Sprintf("expected expression, found %s", describe(tok)),
		}
	}
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Kind {
	case TokenIdent, TokenInt:
		return fmt.Sprintf("%s %q", tok.Kind, tok.Text)
	default:
		return tok.Kind.String()
	}
}
