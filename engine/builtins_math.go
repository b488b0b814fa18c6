package engine

import (
	"math"

	"tally/value"
)

func registerMath(r *Registry) {
	r.Register(&Function{Name: "SUM", MinArgs: 1, MaxArgs: -1, Fn: fnSum})
	r.Register(&Function{Name: "AVERAGE", MinArgs: 1, MaxArgs: -1, Fn: fnAverage})
	r.Alias("AVG", "AVERAGE")
	r.Register(&Function{Name: "COUNT", MinArgs: 1, MaxArgs: -1, Fn: fnCount})
	r.Register(&Function{Name: "COUNTA", MinArgs: 1, MaxArgs: -1, Fn: fnCountA})
	r.Register(&Function{Name: "MAX", MinArgs: 1, MaxArgs: -1, Fn: fnMax})
	r.Register(&Function{Name: "MIN", MinArgs: 1, MaxArgs: -1, Fn: fnMin})
	r.Register(&Function{Name: "ABS", MinArgs: 1, MaxArgs: 1, Fn: fnAbs})
	r.Register(&Function{Name: "ROUND", MinArgs: 1, MaxArgs: 2, Fn: fnRound})
	r.Register(&Function{Name: "CEIL", MinArgs: 1, MaxArgs: 2, Fn: fnCeil})
	r.Register(&Function{Name: "FLOOR", MinArgs: 1, MaxArgs: 2, Fn: fnFloor})
	r.Register(&Function{Name: "POWER", MinArgs: 2, MaxArgs: 2, Fn: fnPower})
	r.Register(&Function{Name: "SQRT", MinArgs: 1, MaxArgs: 1, Fn: fnSqrt})
}

func fnSum(args []value.Value) value.Value {
	total := 0.0
	walkValues(args, func(v value.Value) {
		if f, ok := value.StrictNumber(v); ok {
			total += f
		}
	})
	return value.Num(total)
}

func fnAverage(args []value.Value) value.Value {
	total := 0.0
	count := 0
	walkValues(args, func(v value.Value) {
		if f, ok := value.StrictNumber(v); ok {
			total += f
			count++
		}
	})
	if count == 0 {
		return value.NewError(value.ErrDiv0)
	}
	return value.Num(total / float64(count))
}

func fnCount(args []value.Value) value.Value {
	count := int64(0)
	walkValues(args, func(v value.Value) {
		if _, ok := value.StrictNumber(v); ok {
			count++
		}
	})
	return value.Int(count)
}

func fnCountA(args []value.Value) value.Value {
	count := int64(0)
	var firstErr *value.Error
	walkValues(args, func(v value.Value) {
		switch n := v.(type) {
		case *value.Empty:
		case *value.Error:
			if firstErr == nil {
				firstErr = n
			}
		default:
			count++
		}
	})
	if firstErr != nil {
		return firstErr
	}
	return value.Int(count)
}

func fnMax(args []value.Value) value.Value {
	var max float64
	found := false
	walkValues(args, func(v value.Value) {
		f, ok := value.StrictNumber(v)
		if !ok {
			return
		}
		if !found || f > max {
			max = f
		}
		found = true
	})
	if !found {
		return value.NewError(value.ErrValue)
	}
	return value.Num(max)
}

func fnMin(args []value.Value) value.Value {
	var min float64
	found := false
	walkValues(args, func(v value.Value) {
		f, ok := value.StrictNumber(v)
		if !ok {
			return
		}
		if !found || f < min {
			min = f
		}
		found = true
	})
	if !found {
		return value.NewError(value.ErrValue)
	}
	return value.Num(min)
}

func fnAbs(args []value.Value) value.Value {
	f, ok := value.AsNumber(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	return value.Num(math.Abs(f))
}

// fnRound rounds half away from zero, the spreadsheet convention.
func fnRound(args []value.Value) value.Value {
	f, ok := value.AsNumber(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	digits := 0.0
	if len(args) > 1 {
		d, ok := value.AsNumber(args[1])
		if !ok {
			return value.NewError(value.ErrValue)
		}
		digits = d
	}
	scale := math.Pow(10, math.Trunc(digits))
	scaled := f * scale
	rounded := math.Floor(math.Abs(scaled) + 0.5)
	if scaled < 0 {
		rounded = -rounded
	}
	return value.Num(rounded / scale)
}

func fnCeil(args []value.Value) value.Value {
	return scaledStep(args, math.Ceil)
}

func fnFloor(args []value.Value) value.Value {
	return scaledStep(args, math.Floor)
}

func scaledStep(args []value.Value, step func(float64) float64) value.Value {
	f, ok := value.AsNumber(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if len(args) == 1 {
		return value.Num(step(f))
	}
	sig, ok := value.AsNumber(args[1])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if sig == 0 {
		return value.NewError(value.ErrDiv0)
	}
	return value.Num(step(f/sig) * sig)
}

func fnPower(args []value.Value) value.Value {
	base, ok1 := value.AsNumber(args[0])
	exp, ok2 := value.AsNumber(args[1])
	if !ok1 || !ok2 {
		return value.NewError(value.ErrValue)
	}
	out := math.Pow(base, exp)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return value.NewError(value.ErrNum)
	}
	return value.Num(out)
}

func fnSqrt(args []value.Value) value.Value {
	f, ok := value.AsNumber(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if f < 0 {
		return value.NewError(value.ErrNum)
	}
	return value.Num(math.Sqrt(f))
}
