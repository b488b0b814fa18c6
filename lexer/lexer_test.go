package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tally/token"
)

func collect(input string) []token.Token {
	l := New(input)
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func TestOperatorsAndReferences(t *testing.T) {
	input := `=SUM($A$1:B2)<>3.5&"x"`
	expected := []struct {
		typ token.TokenType
		lit string
	}{
		{token.EQ, "="},
		{token.IDENT, "SUM"},
		{token.LPAREN, "("},
		{token.DOLLAR, "$"},
		{token.IDENT, "A"},
		{token.DOLLAR, "$"},
		{token.INT, "1"},
		{token.COLON, ":"},
		{token.IDENT, "B2"},
		{token.RPAREN, ")"},
		{token.NE, "<>"},
		{token.FLOAT, "3.5"},
		{token.AMPERSAND, "&"},
		{token.STRING, "x"},
		{token.EOF, ""},
	}

	toks := collect(input)
	assert.Len(t, toks, len(expected))
	for i, want := range expected {
		assert.Equal(t, want.typ, toks[i].Type, "token %d", i)
		assert.Equal(t, want.lit, toks[i].Literal, "token %d", i)
	}
}

func TestComparisonOperators(t *testing.T) {
	toks := collect(`< <= > >= = <>`)
	types := []token.TokenType{token.LT, token.LE, token.GT, token.GE, token.EQ, token.NE, token.EOF}
	for i, typ := range types {
		assert.Equal(t, typ, toks[i].Type)
	}
}

func TestStringEscapedQuote(t *testing.T) {
	toks := collect(`"he said ""hi"""`)
	assert.Equal(t, token.TokenType(token.STRING), toks[0].Type)
	assert.Equal(t, `he said "hi"`, toks[0].Literal)
}

func TestErrorLiterals(t *testing.T) {
	for _, lit := range []string{"#DIV/0!", "#NAME?", "#VALUE!", "#REF!", "#NULL!", "#NUM!", "#N/A"} {
		toks := collect(lit)
		assert.Equal(t, token.TokenType(token.ERRLIT), toks[0].Type, lit)
		assert.Equal(t, lit, toks[0].Literal)
	}

	toks := collect("#div/0!")
	assert.Equal(t, token.TokenType(token.ERRLIT), toks[0].Type)
	assert.Equal(t, "#DIV/0!", toks[0].Literal)

	toks = collect("#BOGUS")
	assert.Equal(t, token.TokenType(token.ILLEGAL), toks[0].Type)
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	toks := collect("true And NOT or FALSE")
	types := []token.TokenType{token.TRUE, token.AND, token.NOT, token.OR, token.FALSE, token.EOF}
	for i, typ := range types {
		assert.Equal(t, typ, toks[i].Type)
	}
}

func TestNumbersAndBrackets(t *testing.T) {
	toks := collect("R[-1]C[2]")
	types := []token.TokenType{
		token.IDENT, token.LBRACKET, token.MINUS, token.INT, token.RBRACKET,
		token.IDENT, token.LBRACKET, token.INT, token.RBRACKET, token.EOF,
	}
	for i, typ := range types {
		assert.Equal(t, typ, toks[i].Type, "token %d", i)
	}
}

func TestPositions(t *testing.T) {
	toks := collect("=A1")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, 2, toks[1].Column)
}
