package ast

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"tally/cell"
	"tally/value"
)

// node is the flat serializable form of an expression tree. The K field
// discriminates: "lit", "cell", "range", "call", "bin", "un".
type node struct {
	K string `msgpack:"k"`

	// literal payload
	VT string  `msgpack:"vt,omitempty"`
	VI int64   `msgpack:"vi,omitempty"`
	VF float64 `msgpack:"vf,omitempty"`
	VS string  `msgpack:"vs,omitempty"`
	VB bool    `msgpack:"vb,omitempty"`
	VE string  `msgpack:"ve,omitempty"`

	// references
	Row    uint32 `msgpack:"r,omitempty"`
	Col    uint32 `msgpack:"c,omitempty"`
	Row2   uint32 `msgpack:"r2,omitempty"`
	Col2   uint32 `msgpack:"c2,omitempty"`
	RowRel bool   `msgpack:"rr,omitempty"`
	ColRel bool   `msgpack:"cr,omitempty"`
	RowOff int32  `msgpack:"ro,omitempty"`
	ColOff int32  `msgpack:"co,omitempty"`

	Op   string `msgpack:"op,omitempty"`
	Name string `msgpack:"n,omitempty"`

	Args []*node `msgpack:"a,omitempty"`
	L    *node   `msgpack:"l,omitempty"`
	R    *node   `msgpack:"x,omitempty"`
}

// Marshal encodes an expression tree to its opaque wire form.
func Marshal(e Expr) ([]byte, error) {
	n, err := flatten(e)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(n)
}

// Unmarshal restores an expression tree from its wire form.
func Unmarshal(data []byte) (Expr, error) {
	var n node
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return build(&n)
}

func flatten(e Expr) (*node, error) {
	switch x := e.(type) {
	case *Literal:
		n := &node{K: "lit"}
		switch v := x.Value.(type) {
		case *value.Empty:
			n.VT = "empty"
		case *value.Boolean:
			n.VT = "bool"
			n.VB = v.Value
		case *value.Integer:
			n.VT = "int"
			n.VI = v.Value
		case *value.Float:
			n.VT = "float"
			n.VF = v.Value
		case *value.String:
			n.VT = "str"
			n.VS = v.Value
		case *value.Error:
			n.VT = "err"
			n.VE = v.Kind.Code()
		default:
			return nil, fmt.Errorf("unsupported literal type %s", x.Value.Type())
		}
		return n, nil
	case *CellRef:
		return &node{
			K: "cell", Row: x.Addr.Row, Col: x.Addr.Col,
			RowRel: x.RowRel, ColRel: x.ColRel, RowOff: x.RowOff, ColOff: x.ColOff,
		}, nil
	case *RangeRef:
		n := x.Range.Normalized()
		return &node{
			K: "range", Row: n.Start.Row, Col: n.Start.Col, Row2: n.End.Row, Col2: n.End.Col,
		}, nil
	case *FunctionCall:
		n := &node{K: "call", Name: x.Name}
		for _, arg := range x.Args {
			fn, err := flatten(arg)
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, fn)
		}
		return n, nil
	case *BinaryExpr:
		l, err := flatten(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := flatten(x.Right)
		if err != nil {
			return nil, err
		}
		return &node{K: "bin", Op: string(x.Op), L: l, R: r}, nil
	case *UnaryExpr:
		l, err := flatten(x.Operand)
		if err != nil {
			return nil, err
		}
		return &node{K: "un", Op: string(x.Op), L: l}, nil
	}
	return nil, fmt.Errorf("unsupported expression node %T", e)
}

func build(n *node) (Expr, error) {
	switch n.K {
	case "lit":
		var v value.Value
		switch n.VT {
		case "empty":
			v = value.Blank
		case "bool":
			v = value.Bool(n.VB)
		case "int":
			v = value.Int(n.VI)
		case "float":
			v = value.Num(n.VF)
		case "str":
			v = value.Str(n.VS)
		case "err":
			v = value.NewError(value.KindFromCode(n.VE))
		default:
			return nil, fmt.Errorf("unknown literal tag %q", n.VT)
		}
		return &Literal{Value: v}, nil
	case "cell":
		return &CellRef{
			Addr:   cell.Address{Row: n.Row, Col: n.Col},
			RowRel: n.RowRel, ColRel: n.ColRel, RowOff: n.RowOff, ColOff: n.ColOff,
		}, nil
	case "range":
		return &RangeRef{Range: cell.NewRange(
			cell.Address{Row: n.Row, Col: n.Col},
			cell.Address{Row: n.Row2, Col: n.Col2},
		)}, nil
	case "call":
		call := &FunctionCall{Name: n.Name}
		for _, an := range n.Args {
			arg, err := build(an)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		return call, nil
	case "bin":
		if n.L == nil || n.R == nil {
			return nil, fmt.Errorf("binary node missing operand")
		}
		l, err := build(n.L)
		if err != nil {
			return nil, err
		}
		r, err := build(n.R)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: BinaryOp(n.Op), Left: l, Right: r}, nil
	case "un":
		if n.L == nil {
			return nil, fmt.Errorf("unary node missing operand")
		}
		l, err := build(n.L)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: UnaryOp(n.Op), Operand: l}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", n.K)
}
