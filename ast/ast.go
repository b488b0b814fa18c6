package ast

import (
	"fmt"
	"strings"

	"tally/cell"
	"tally/token"
	"tally/value"
)

// Expr is a node of a compiled formula's expression tree.
type Expr interface {
	exprNode()
	TokenLiteral() string
	String() string
}

type BinaryOp string

const (
	OpAdd    BinaryOp = "+"
	OpSub    BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpMod    BinaryOp = "%"
	OpPow    BinaryOp = "^"
	OpEq     BinaryOp = "="
	OpNe     BinaryOp = "<>"
	OpLt     BinaryOp = "<"
	OpLe     BinaryOp = "<="
	OpGt     BinaryOp = ">"
	OpGe     BinaryOp = ">="
	OpConcat BinaryOp = "&"
	OpAnd    BinaryOp = "AND"
	OpOr     BinaryOp = "OR"
)

type UnaryOp string

const (
	OpNeg     UnaryOp = "-"
	OpPlus    UnaryOp = "+"
	OpNot     UnaryOp = "NOT"
	OpPercent UnaryOp = "%"
)

type Literal struct {
	Token token.Token
	Value value.Value
}

func (l *Literal) exprNode()            {}
func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string       { return l.Value.Inspect() }

// CellRef is a single-cell reference. Components flagged relative carry a
// signed offset from the evaluation base cell instead of an absolute index.
type CellRef struct {
	Token  token.Token
	Addr   cell.Address
	RowRel bool
	ColRel bool
	RowOff int32
	ColOff int32
	AbsRow bool
	AbsCol bool
}

func (c *CellRef) exprNode()            {}
func (c *CellRef) TokenLiteral() string { return c.Token.Literal }

// Relative reports whether any component resolves against the current cell.
func (c *CellRef) Relative() bool { return c.RowRel || c.ColRel }

func (c *CellRef) String() string {
	if c.Relative() {
		row := fmt.Sprintf("%d", c.Addr.Row+1)
		if c.RowRel {
			row = fmt.Sprintf("[%d]", c.RowOff)
		}
		col := fmt.Sprintf("%d", c.Addr.Col+1)
		if c.ColRel {
			col = fmt.Sprintf("[%d]", c.ColOff)
		}
		return "R" + row + "C" + col
	}
	return cell.FormatA1(c.Addr)
}

type RangeRef struct {
	Token token.Token
	Range cell.Range
}

func (r *RangeRef) exprNode()            {}
func (r *RangeRef) TokenLiteral() string { return r.Token.Literal }
func (r *RangeRef) String() string       { return r.Range.String() }

type FunctionCall struct {
	Token token.Token
	Name  string
	Args  []Expr
}

func (f *FunctionCall) exprNode()            {}
func (f *FunctionCall) TokenLiteral() string { return f.Token.Literal }
func (f *FunctionCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

type BinaryExpr struct {
	Token token.Token
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) exprNode()            {}
func (b *BinaryExpr) TokenLiteral() string { return b.Token.Literal }
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

type UnaryExpr struct {
	Token   token.Token
	Op      UnaryOp
	Operand Expr
}

func (u *UnaryExpr) exprNode()            {}
func (u *UnaryExpr) TokenLiteral() string { return u.Token.Literal }
func (u *UnaryExpr) String() string {
	if u.Op == OpPercent {
		return "(" + u.Operand.String() + "%)"
	}
	if u.Op == OpNot {
		return "(NOT " + u.Operand.String() + ")"
	}
	return "(" + string(u.Op) + u.Operand.String() + ")"
}
