package engine

import (
	"tally/ast"
	"tally/cell"
	"tally/value"
)

func (e *Engine) eval(node ast.Expr, resolver ValueResolver, depth int) value.Value {
	if depth > e.opts.MaxDepth {
		return value.NewError(value.ErrValue)
	}

	switch n := node.(type) {
	case *ast.Literal:
		return n.Value
	case *ast.CellRef:
		return e.evalCellRef(n, resolver)
	case *ast.RangeRef:
		rows := resolver.GetRange(n.Range.Normalized())
		return &value.Array{Elements: rows}
	case *ast.FunctionCall:
		return e.evalCall(n, resolver, depth)
	case *ast.BinaryExpr:
		return e.evalBinary(n, resolver, depth)
	case *ast.UnaryExpr:
		return e.evalUnary(n, resolver, depth)
	}
	return value.NewError(value.ErrValue)
}

func (e *Engine) evalCellRef(ref *ast.CellRef, resolver ValueResolver) value.Value {
	addr := ref.Addr
	if ref.Relative() {
		base, ok := resolver.CurrentCell()
		if !ok {
			return value.NewError(value.ErrRef)
		}
		if ref.RowRel {
			row := int64(base.Row) + int64(ref.RowOff)
			if row < 0 || row >= int64(cell.MaxRows) {
				return value.NewError(value.ErrRef)
			}
			addr.Row = uint32(row)
		}
		if ref.ColRel {
			col := int64(base.Col) + int64(ref.ColOff)
			if col < 0 || col >= int64(cell.MaxCols) {
				return value.NewError(value.ErrRef)
			}
			addr.Col = uint32(col)
		}
	}
	return resolver.GetCell(addr)
}

func (e *Engine) evalCall(call *ast.FunctionCall, resolver ValueResolver, depth int) value.Value {
	// OFFSET needs the referenced address, not its value.
	if call.Name == "OFFSET" {
		return e.evalOffset(call, resolver, depth)
	}

	fn, ok := e.registry.Get(call.Name)
	if !ok {
		return value.NewError(value.ErrName)
	}
	if len(call.Args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(call.Args) > fn.MaxArgs) {
		return value.NewError(value.ErrValue)
	}

	args := make([]value.Value, len(call.Args))
	for i, arg := range call.Args {
		args[i] = e.eval(arg, resolver, depth+1)
	}
	if err, found := value.FirstError(args); found {
		return err
	}
	return fn.Fn(args)
}

// evalOffset shifts the first argument's referenced rectangle by rows and
// cols, optionally resizing it, and reads the result through the resolver.
func (e *Engine) evalOffset(call *ast.FunctionCall, resolver ValueResolver, depth int) value.Value {
	if len(call.Args) < 3 || len(call.Args) > 5 {
		return value.NewError(value.ErrValue)
	}

	var base cell.Range
	switch ref := call.Args[0].(type) {
	case *ast.CellRef:
		if ref.Relative() {
			return value.NewError(value.ErrRef)
		}
		base = cell.NewRange(ref.Addr, ref.Addr)
	case *ast.RangeRef:
		base = ref.Range.Normalized()
	default:
		return value.NewError(value.ErrValue)
	}

	nums := make([]int64, 0, 4)
	for _, arg := range call.Args[1:] {
		v := e.eval(arg, resolver, depth+1)
		if err, ok := v.(*value.Error); ok {
			return err
		}
		f, ok := value.AsNumber(v)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		nums = append(nums, int64(f))
	}

	startRow := int64(base.Start.Row) + nums[0]
	startCol := int64(base.Start.Col) + nums[1]
	height := int64(base.Rows())
	width := int64(base.Cols())
	if len(nums) > 2 {
		height = nums[2]
	}
	if len(nums) > 3 {
		width = nums[3]
	}
	if height <= 0 || width <= 0 {
		return value.NewError(value.ErrRef)
	}
	endRow := startRow + height - 1
	endCol := startCol + width - 1
	if startRow < 0 || startCol < 0 ||
		endRow >= int64(cell.MaxRows) || endCol >= int64(cell.MaxCols) {
		return value.NewError(value.ErrRef)
	}

	target := cell.NewRange(
		cell.Address{Row: uint32(startRow), Col: uint32(startCol)},
		cell.Address{Row: uint32(endRow), Col: uint32(endCol)},
	)
	if height == 1 && width == 1 {
		return resolver.GetCell(target.Start)
	}
	return &value.Array{Elements: resolver.GetRange(target)}
}

func (e *Engine) evalBinary(expr *ast.BinaryExpr, resolver ValueResolver, depth int) value.Value {
	left := e.eval(expr.Left, resolver, depth+1)
	if err, ok := left.(*value.Error); ok {
		return err
	}
	right := e.eval(expr.Right, resolver, depth+1)
	if err, ok := right.(*value.Error); ok {
		return err
	}
	return applyBinary(expr.Op, left, right)
}

func (e *Engine) evalUnary(expr *ast.UnaryExpr, resolver ValueResolver, depth int) value.Value {
	operand := e.eval(expr.Operand, resolver, depth+1)
	if err, ok := operand.(*value.Error); ok {
		return err
	}
	return applyUnary(expr.Op, operand)
}
