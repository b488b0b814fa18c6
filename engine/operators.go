package engine

import (
	"math"

	"tally/ast"
	"tally/value"
)

// applyBinary evaluates op on already-error-free operands.
func applyBinary(op ast.BinaryOp, left, right value.Value) value.Value {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow:
		return applyArithmetic(op, left, right)
	case ast.OpConcat:
		return value.Str(value.Text(left) + value.Text(right))
	case ast.OpEq:
		return value.Bool(value.Equal(left, right))
	case ast.OpNe:
		return value.Bool(!value.Equal(left, right))
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		cmp, ok := value.Compare(left, right)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		switch op {
		case ast.OpLt:
			return value.Bool(cmp < 0)
		case ast.OpLe:
			return value.Bool(cmp <= 0)
		case ast.OpGt:
			return value.Bool(cmp > 0)
		default:
			return value.Bool(cmp >= 0)
		}
	case ast.OpAnd, ast.OpOr:
		lb, lok := value.Truthy(left)
		rb, rok := value.Truthy(right)
		if !lok || !rok {
			return value.NewError(value.ErrValue)
		}
		if op == ast.OpAnd {
			return value.Bool(lb && rb)
		}
		return value.Bool(lb || rb)
	}
	return value.NewError(value.ErrValue)
}

func applyArithmetic(op ast.BinaryOp, left, right value.Value) value.Value {
	lf, lok := value.AsNumber(left)
	rf, rok := value.AsNumber(right)
	if !lok || !rok {
		return value.NewError(value.ErrValue)
	}

	_, lint := left.(*value.Integer)
	_, rint := right.(*value.Integer)
	intResult := lint && rint

	switch op {
	case ast.OpAdd:
		return value.Number(lf+rf, intResult)
	case ast.OpSub:
		return value.Number(lf-rf, intResult)
	case ast.OpMul:
		return value.Number(lf*rf, intResult)
	case ast.OpDiv:
		if rf == 0 {
			return value.NewError(value.ErrDiv0)
		}
		return value.Num(lf / rf)
	case ast.OpMod:
		if rf == 0 {
			return value.NewError(value.ErrDiv0)
		}
		if intResult {
			return value.Int(int64(lf) % int64(rf))
		}
		return value.Num(math.Mod(lf, rf))
	case ast.OpPow:
		out := math.Pow(lf, rf)
		if math.IsNaN(out) || math.IsInf(out, 0) {
			return value.NewError(value.ErrNum)
		}
		return value.Num(out)
	}
	return value.NewError(value.ErrValue)
}

func applyUnary(op ast.UnaryOp, operand value.Value) value.Value {
	switch op {
	case ast.OpNeg:
		if n, ok := operand.(*value.Integer); ok {
			return value.Int(-n.Value)
		}
		f, ok := value.AsNumber(operand)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Num(-f)
	case ast.OpPlus:
		switch operand.(type) {
		case *value.Integer, *value.Float:
			return operand
		}
		f, ok := value.AsNumber(operand)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Num(f)
	case ast.OpNot:
		b, ok := value.Truthy(operand)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Bool(!b)
	case ast.OpPercent:
		f, ok := value.AsNumber(operand)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Num(f / 100)
	}
	return value.NewError(value.ErrValue)
}
