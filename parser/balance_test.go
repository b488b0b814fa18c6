package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalanceParentheses(t *testing.T) {
	assert.Equal(t, "=SUM(1)", BalanceParentheses("=SUM(1"))
	assert.Equal(t, "=SUM(A1:A3)", BalanceParentheses("=SUM(A1:A3)"))
	assert.Equal(t, "=A(B(1))", BalanceParentheses("=A(B(1"))
	assert.Equal(t, "=X[1]", BalanceParentheses("=X[1"))
}

func TestBalanceQuotes(t *testing.T) {
	assert.Equal(t, `="foo"`, BalanceQuotes(`="foo`))
	assert.Equal(t, `="foo"`, BalanceQuotes(`="foo"`))
	assert.Equal(t, `="a""b"`, BalanceQuotes(`="a""b`))
	// The close paren opened before the string stays outside of it.
	assert.Equal(t, `=SUM("x")`, BalanceFormula(`=SUM("x)`))
}

func TestIsBalanced(t *testing.T) {
	assert.True(t, IsBalanced("=SUM(A1:A3)"))
	assert.False(t, IsBalanced("=SUM(A1:A3"))
	assert.False(t, IsBalanced("=SUM)A1("))
	assert.False(t, IsBalanced("=(]"))
}

func TestIsFormula(t *testing.T) {
	assert.True(t, IsFormula("=A1"))
	assert.True(t, IsFormula("@A1"))
	assert.True(t, IsFormula("+A1"))
	assert.False(t, IsFormula("+1"))
	assert.False(t, IsFormula("-2.5"))
	assert.False(t, IsFormula("hello"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("=A1+1"))
	assert.Error(t, Validate("A1+1"))
	assert.Error(t, Validate("=SUM("))
}

func TestFormatParseErrors(t *testing.T) {
	source := "=1+"
	_, _, err := Compile(source)
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected ParseError, got %T", err)
	}
	out := FormatParseErrors([]ParseError{*pe}, source)
	assert.Contains(t, out, "parse error:")
	assert.Contains(t, out, "^")
	assert.Empty(t, FormatParseErrors(nil, source))
}
