package engine

import "tally/value"

func registerLogical(r *Registry) {
	r.Register(&Function{Name: "IF", MinArgs: 2, MaxArgs: 3, Fn: fnIf})
	r.Register(&Function{Name: "AND", MinArgs: 1, MaxArgs: -1, Fn: fnAnd})
	r.Register(&Function{Name: "OR", MinArgs: 1, MaxArgs: -1, Fn: fnOr})
	r.Register(&Function{Name: "NOT", MinArgs: 1, MaxArgs: 1, Fn: fnNot})
}

func fnIf(args []value.Value) value.Value {
	truthy, ok := value.Truthy(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if truthy {
		return args[1]
	}
	if len(args) > 2 {
		return args[2]
	}
	return value.Bool(false)
}

// fnAnd folds truthiness over every scalar: Empty is ignored, any error
// wins, and no coercible value at all is a #VALUE! error.
func fnAnd(args []value.Value) value.Value {
	hasCoercible := false
	anyFalse := false
	var firstErr *value.Error

	walkValues(args, func(v value.Value) {
		if firstErr != nil {
			return
		}
		if _, ok := v.(*value.Empty); ok {
			return
		}
		if err, ok := v.(*value.Error); ok {
			firstErr = err
			return
		}
		b, ok := value.Truthy(v)
		if !ok {
			firstErr = value.NewError(value.ErrValue)
			return
		}
		hasCoercible = true
		if !b {
			anyFalse = true
		}
	})

	if firstErr != nil {
		return firstErr
	}
	if !hasCoercible {
		return value.NewError(value.ErrValue)
	}
	return value.Bool(!anyFalse)
}

func fnOr(args []value.Value) value.Value {
	hasCoercible := false
	anyTrue := false
	var firstErr *value.Error

	walkValues(args, func(v value.Value) {
		if firstErr != nil {
			return
		}
		if _, ok := v.(*value.Empty); ok {
			return
		}
		if err, ok := v.(*value.Error); ok {
			firstErr = err
			return
		}
		b, ok := value.Truthy(v)
		if !ok {
			firstErr = value.NewError(value.ErrValue)
			return
		}
		hasCoercible = true
		if b {
			anyTrue = true
		}
	})

	if firstErr != nil {
		return firstErr
	}
	if !hasCoercible {
		return value.NewError(value.ErrValue)
	}
	return value.Bool(anyTrue)
}

func fnNot(args []value.Value) value.Value {
	b, ok := value.Truthy(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	return value.Bool(!b)
}
