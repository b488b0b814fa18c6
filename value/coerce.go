package value

import (
	"math"
	"strconv"
	"strings"
)

// AsNumber coerces v to a float64 under arithmetic rules: Empty is 0,
// Bool is 0/1, String is parsed. The second result is false when v has
// no numeric reading.
func AsNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case *Integer:
		return float64(n.Value), true
	case *Float:
		return n.Value, true
	case *Boolean:
		if n.Value {
			return 1, true
		}
		return 0, true
	case *Empty:
		return 0, true
	case *String:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.Value), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// StrictNumber reads v as a number without string or bool coercion.
// Aggregates use this to skip non-numeric cells.
func StrictNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case *Integer:
		return float64(n.Value), true
	case *Float:
		return n.Value, true
	}
	return 0, false
}

// Truthy applies the boolean coercion used by IF/AND/OR/NOT.
// The second result is false when v cannot be coerced.
func Truthy(v Value) (bool, bool) {
	switch b := v.(type) {
	case *Boolean:
		return b.Value, true
	case *Integer:
		return b.Value != 0, true
	case *Float:
		return b.Value != 0 && !math.IsNaN(b.Value), true
	case *Empty:
		return false, true
	}
	return false, false
}

// Text renders v the way the concatenation operator and text functions see it.
func Text(v Value) string {
	switch s := v.(type) {
	case *Empty:
		return ""
	case *String:
		return s.Value
	case *Boolean:
		return s.Inspect()
	case *Integer:
		return s.Inspect()
	case *Float:
		return strconv.FormatFloat(s.Value, 'f', -1, 64)
	case *Error:
		return s.Kind.Label()
	case *Array:
		parts := make([]string, len(s.Elements))
		for i, el := range s.Elements {
			parts[i] = Text(el)
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// Number wraps f as Integer when intResult holds and f is exact, Float otherwise.
func Number(f float64, intResult bool) Value {
	if intResult && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return &Integer{Value: int64(f)}
	}
	return &Float{Value: f}
}

// Equal implements the '=' operator: numeric comparison when both sides
// coerce, case-insensitive string comparison when either side is text.
func Equal(left, right Value) bool {
	if ls, lok := left.(*String); lok {
		if rs, rok := right.(*String); rok {
			return strings.EqualFold(ls.Value, rs.Value)
		}
	}
	_, lstr := left.(*String)
	_, rstr := right.(*String)
	if lstr != rstr {
		// Text never equals a number or bool.
		return false
	}
	if lb, ok := left.(*Boolean); ok {
		rb, ok := right.(*Boolean)
		return ok && lb.Value == rb.Value
	}
	if _, ok := right.(*Boolean); ok {
		return false
	}
	lf, lok := AsNumber(left)
	rf, rok := AsNumber(right)
	return lok && rok && lf == rf
}

// Compare orders left and right for the relational operators. It returns
// the sign of left-right and false when the operands are not comparable.
func Compare(left, right Value) (int, bool) {
	if ls, lok := left.(*String); lok {
		if rs, rok := right.(*String); rok {
			return strings.Compare(strings.ToLower(ls.Value), strings.ToLower(rs.Value)), true
		}
	}
	if lb, lok := left.(*Boolean); lok {
		if rb, rok := right.(*Boolean); rok {
			return boolInt(lb.Value) - boolInt(rb.Value), true
		}
	}
	lf, lok := AsNumber(left)
	rf, rok := AsNumber(right)
	if !lok || !rok {
		return 0, false
	}
	switch {
	case lf < rf:
		return -1, true
	case lf > rf:
		return 1, true
	}
	return 0, true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
