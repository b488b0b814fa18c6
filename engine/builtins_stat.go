package engine

import (
	"math"
	"strconv"
	"strings"

	"tally/value"
)

func registerStat(r *Registry) {
	r.Register(&Function{Name: "STDEV", MinArgs: 1, MaxArgs: -1, Fn: fnStdev})
	r.Register(&Function{Name: "VAR", MinArgs: 1, MaxArgs: -1, Fn: fnVar})
	r.Register(&Function{Name: "COUNTIF", MinArgs: 2, MaxArgs: 2, Fn: fnCountIf})
}

func sampleMoments(args []value.Value) (mean, m2 float64, count int) {
	var nums []float64
	walkValues(args, func(v value.Value) {
		if f, ok := value.StrictNumber(v); ok {
			nums = append(nums, f)
		}
	})
	count = len(nums)
	if count == 0 {
		return 0, 0, 0
	}
	for _, f := range nums {
		mean += f
	}
	mean /= float64(count)
	for _, f := range nums {
		d := f - mean
		m2 += d * d
	}
	return mean, m2, count
}

// fnVar is the sample variance; fewer than two numbers is #DIV/0!.
func fnVar(args []value.Value) value.Value {
	_, m2, count := sampleMoments(args)
	if count < 2 {
		return value.NewError(value.ErrDiv0)
	}
	return value.Num(m2 / float64(count-1))
}

func fnStdev(args []value.Value) value.Value {
	out := fnVar(args)
	v, ok := out.(*value.Float)
	if !ok {
		return out
	}
	return value.Num(math.Sqrt(v.Value))
}

// criterion builds the COUNTIF predicate: a leading comparator applies
// numerically when both sides coerce, anything else is equality.
func criterion(crit value.Value) func(value.Value) bool {
	if s, ok := crit.(*value.String); ok {
		text := strings.TrimSpace(s.Value)
		for _, op := range []string{"<>", "<=", ">=", "<", ">", "="} {
			if !strings.HasPrefix(text, op) {
				continue
			}
			operand := strings.TrimSpace(text[len(op):])
			if f, err := strconv.ParseFloat(operand, 64); err == nil {
				return numericCriterion(op, f)
			}
			if op == "=" {
				target := value.Str(operand)
				return func(v value.Value) bool { return lookupEqual(v, target) }
			}
			if op == "<>" {
				target := value.Str(operand)
				return func(v value.Value) bool { return !lookupEqual(v, target) }
			}
			break
		}
	}
	return func(v value.Value) bool { return lookupEqual(v, crit) }
}

func numericCriterion(op string, target float64) func(value.Value) bool {
	return func(v value.Value) bool {
		f, ok := value.StrictNumber(v)
		if !ok {
			return false
		}
		switch op {
		case "<":
			return f < target
		case "<=":
			return f <= target
		case ">":
			return f > target
		case ">=":
			return f >= target
		case "<>":
			return f != target
		default:
			return f == target
		}
	}
}

func fnCountIf(args []value.Value) value.Value {
	match := criterion(args[1])
	count := int64(0)
	walkValues(args[:1], func(v value.Value) {
		if _, empty := v.(*value.Empty); empty {
			return
		}
		if match(v) {
			count++
		}
	})
	return value.Int(count)
}
