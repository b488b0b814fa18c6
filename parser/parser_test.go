package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/ast"
	"tally/cell"
)

func mustCompile(t *testing.T, source string) (ast.Expr, []cell.Ref) {
	t.Helper()
	expr, deps, err := Compile(source)
	require.NoError(t, err, source)
	return expr, deps
}

func TestPrecedence(t *testing.T) {
	cases := map[string]string{
		"=1+2*3":        "(1 + (2 * 3))",
		"=(1+2)*3":      "((1 + 2) * 3)",
		"=1+2-3":        "((1 + 2) - 3)",
		"=2^3^2":        "(2 ^ (3 ^ 2))",
		"=-2^2":         "(-(2 ^ 2))",
		`="a"&"b"="ab"`: `(("a" & "b") = "ab")`,
		"=1<2 AND 3>2":  "((1 < 2) AND (3 > 2))",
		"=1=1 OR 2=3":   "((1 = 1) OR (2 = 3))",
		"=NOT 1=2":      "(NOT (1 = 2))",
		"=50%":          "(50%)",
		"=50%+1":        "((50%) + 1)",
		"=5%3":          "(5 % 3)",
		"=10%3+1":       "((10 % 3) + 1)",
	}
	for source, want := range cases {
		expr, _ := mustCompile(t, source)
		assert.Equal(t, want, expr.String(), source)
	}
}

func TestCellAndRangeReferences(t *testing.T) {
	expr, deps := mustCompile(t, "=A1+$B$2")
	require.Len(t, deps, 2)
	assert.Equal(t, cell.Address{Row: 0, Col: 0}, deps[0].Cell)
	assert.Equal(t, cell.Address{Row: 1, Col: 1}, deps[1].Cell)

	bin, ok := expr.(*ast.BinaryExpr)
	require.True(t, ok)
	right, ok := bin.Right.(*ast.CellRef)
	require.True(t, ok)
	assert.True(t, right.AbsRow)
	assert.True(t, right.AbsCol)

	_, deps = mustCompile(t, "=SUM(A1:B3)")
	require.Len(t, deps, 1)
	assert.Equal(t, cell.RefRange, deps[0].Kind)
	assert.Equal(t, uint32(3), deps[0].Range.Rows())
	assert.Equal(t, uint32(2), deps[0].Range.Cols())
}

func TestRangeNormalizedInDeps(t *testing.T) {
	_, deps := mustCompile(t, "=SUM(B3:A1)")
	require.Len(t, deps, 1)
	assert.Equal(t, cell.Address{Row: 0, Col: 0}, deps[0].Range.Start)
	assert.Equal(t, cell.Address{Row: 2, Col: 1}, deps[0].Range.End)
}

func TestDependencyDeduplication(t *testing.T) {
	_, deps := mustCompile(t, "=A1+A1*A1")
	assert.Len(t, deps, 1)

	_, deps = mustCompile(t, "=SUM(A1:A3)+SUM(A1:A3)+B1")
	assert.Len(t, deps, 2)
}

func TestColumnAndRowRanges(t *testing.T) {
	_, deps := mustCompile(t, "=SUM(A:C)")
	require.Len(t, deps, 1)
	r := deps[0].Range
	assert.Equal(t, uint32(0), r.Start.Row)
	assert.Equal(t, cell.MaxRows-1, r.End.Row)
	assert.Equal(t, uint32(2), r.End.Col)

	_, deps = mustCompile(t, "=SUM(1:3)")
	require.Len(t, deps, 1)
	r = deps[0].Range
	assert.Equal(t, uint32(2), r.End.Row)
	assert.Equal(t, cell.MaxCols-1, r.End.Col)
}

func TestR1C1References(t *testing.T) {
	expr, deps := mustCompile(t, "=R3C7")
	ref, ok := expr.(*ast.CellRef)
	require.True(t, ok)
	assert.False(t, ref.Relative())
	assert.Equal(t, cell.Address{Row: 2, Col: 6}, ref.Addr)
	assert.Len(t, deps, 1)

	expr, deps = mustCompile(t, "=R[-1]C[2]")
	ref, ok = expr.(*ast.CellRef)
	require.True(t, ok)
	assert.True(t, ref.RowRel)
	assert.True(t, ref.ColRel)
	assert.Equal(t, int32(-1), ref.RowOff)
	assert.Equal(t, int32(2), ref.ColOff)
	// Relative references resolve at evaluation time, not at parse time.
	assert.Empty(t, deps)

	expr, _ = mustCompile(t, "=R3C[2]")
	ref, ok = expr.(*ast.CellRef)
	require.True(t, ok)
	assert.False(t, ref.RowRel)
	assert.True(t, ref.ColRel)
	assert.Equal(t, uint32(2), ref.Addr.Row)

	// "R1" reads as column R, row 1 in A1 form.
	expr, _ = mustCompile(t, "=R1")
	ref, ok = expr.(*ast.CellRef)
	require.True(t, ok)
	col, err := cell.ColumnIndex("R")
	require.NoError(t, err)
	assert.Equal(t, cell.Address{Row: 0, Col: col}, ref.Addr)
}

func TestFunctionCalls(t *testing.T) {
	expr, _ := mustCompile(t, "=if(A1>0, \"yes\", \"no\")")
	call, ok := expr.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "IF", call.Name)
	assert.Len(t, call.Args, 3)

	expr, _ = mustCompile(t, "=AND(1>0, \"x\"=\"x\", 2)")
	call, ok = expr.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "AND", call.Name)
	assert.Len(t, call.Args, 3)

	expr, _ = mustCompile(t, "=TODAY()")
	call, ok = expr.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Empty(t, call.Args)
}

func TestErrorLiteralExpression(t *testing.T) {
	expr, _ := mustCompile(t, "=#N/A")
	lit, ok := expr.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "#N/A", lit.Value.Inspect())
}

func TestParseFailures(t *testing.T) {
	cases := []string{
		"1+2",
		"=",
		"=SUM(",
		"=1+",
		"=A1:",
		"=R[1]",
		"=foo",
		"=1 2",
	}
	for _, source := range cases {
		_, _, err := Compile(source)
		require.Error(t, err, source)
		pe, ok := err.(*ParseError)
		require.True(t, ok, source)
		assert.NotEmpty(t, pe.Message)
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, _, err := Compile("=1+")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, 1, pe.Line)
	assert.Greater(t, pe.Column, 1)
}

func TestCompilePreservesRelativeEndpointRule(t *testing.T) {
	_, _, err := Compile("=R[1]C[1]:B2")
	assert.Error(t, err)
}
