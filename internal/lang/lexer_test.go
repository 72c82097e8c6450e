package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex_AssignmentAndPrint(t *testing.T) {
	tokens, err := Lex("x = 10\nprint x\n")
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenAssign, TokenInt, TokenNewline,
		TokenPrint, TokenIdent, TokenNewline,
		TokenEOF,
	}, kinds)

	assert.Equal(t, "x", tokens[0].Text)
	assert.Equal(t, int64(10), tokens[2].Int)
}

func TestLex_Operators(t *testing.T) {
	tokens, err := Lex("a = (1 + 2) * 3 - 4 / 5")
	require.NoError(t, err)

	var ops []TokenKind
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenLParen, TokenRParen:
			ops = append(ops, tok.Kind)
		}
	}
	assert.Equal(t, []TokenKind{
		TokenLParen, TokenPlus, TokenRParen, TokenStar, TokenMinus, TokenSlash,
	}, ops)
}

func TestLex_CommentsIgnored(t *testing.T) {
	tokens, err := Lex("# leading comment\nx = 1 # trailing\n")
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	// The comment-only line vanishes entirely, newline included; the
	// trailing comment keeps the newline that ends its statement.
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenAssign, TokenInt, TokenNewline,
		TokenEOF,
	}, kinds)
	assert.Equal(t, "x", tokens[0].Text)
}

func TestLex_CommentOnlySource(t *testing.T) {
	tokens, err := Lex("# one\n# two\n")
	require.NoError(t, err)

	require.Len(t, tokens, 1)
	assert.Equal(t, TokenEOF, tokens[0].Kind)
}

func TestLex_PrintIsKeywordNotIdent(t *testing.T) {
	tokens, err := Lex("print printer")
	require.NoError(t, err)

	assert.Equal(t, TokenPrint, tokens[0].Kind)
	// Identifier merely prefixed with "print" stays an identifier.
	assert.Equal(t, TokenIdent, tokens[1].Kind)
	assert.Equal(t, "printer", tokens[1].Text)
}

func TestLex_Positions(t *testing.T) {
	tokens, err := Lex("x = 1\ny = 2\n")
	require.NoError(t, err)

	assert.Equal(t, Pos{Line: 1, Col: 1}, tokens[0].Pos)
	// "y" starts line 2.
	assert.Equal(t, Pos{Line: 2, Col: 1}, tokens[4].Pos)
}

func TestLex_UnexpectedCharacter(t *testing.T) {
	_, err := Lex("x = 1 @ 2")
	require.Error(t, err)

	var lexErr *LexicalError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 1, lexErr.Pos.Line)
}

func TestLex_IntegerOutOfRange(t *testing.T) {
	_, err := Lex("x = 99999999999999999999999999")
	require.Error(t, err)

	var lexErr *LexicalError
	assert.ErrorAs(t, err, &lexErr)
}
