package engine

import (
	"strings"

	"tally/value"
)

func registerText(r *Registry) {
	r.Register(&Function{Name: "CONCAT", MinArgs: 1, MaxArgs: -1, Fn: fnConcat})
	r.Alias("CONCATENATE", "CONCAT")
	r.Register(&Function{Name: "LEFT", MinArgs: 1, MaxArgs: 2, Fn: fnLeft})
	r.Register(&Function{Name: "RIGHT", MinArgs: 1, MaxArgs: 2, Fn: fnRight})
	r.Register(&Function{Name: "MID", MinArgs: 3, MaxArgs: 3, Fn: fnMid})
	r.Register(&Function{Name: "LEN", MinArgs: 1, MaxArgs: 1, Fn: fnLen})
	r.Register(&Function{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Fn: fnUpper})
	r.Register(&Function{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Fn: fnLower})
	r.Register(&Function{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Fn: fnTrim})
}

func fnConcat(args []value.Value) value.Value {
	var out strings.Builder
	walkValues(args, func(v value.Value) {
		out.WriteString(value.Text(v))
	})
	return value.Str(out.String())
}

// textCount reads the optional character-count argument, defaulting to 1.
func textCount(args []value.Value) (int, bool) {
	if len(args) < 2 {
		return 1, true
	}
	f, ok := value.AsNumber(args[1])
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}

func fnLeft(args []value.Value) value.Value {
	s := []rune(value.Text(args[0]))
	n, ok := textCount(args)
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if n > len(s) {
		n = len(s)
	}
	return value.Str(string(s[:n]))
}

func fnRight(args []value.Value) value.Value {
	s := []rune(value.Text(args[0]))
	n, ok := textCount(args)
	if !ok {
		return value.NewError(value.ErrValue)
	}
	if n > len(s) {
		n = len(s)
	}
	return value.Str(string(s[len(s)-n:]))
}

func fnMid(args []value.Value) value.Value {
	s := []rune(value.Text(args[0]))
	start, ok1 := value.AsNumber(args[1])
	length, ok2 := value.AsNumber(args[2])
	if !ok1 || !ok2 || start < 1 || length < 0 {
		return value.NewError(value.ErrValue)
	}
	from := int(start) - 1
	if from >= len(s) {
		return value.Str("")
	}
	to := from + int(length)
	if to > len(s) {
		to = len(s)
	}
	return value.Str(string(s[from:to]))
}

func fnLen(args []value.Value) value.Value {
	return value.Int(int64(len([]rune(value.Text(args[0])))))
}

func fnUpper(args []value.Value) value.Value {
	return value.Str(strings.ToUpper(value.Text(args[0])))
}

func fnLower(args []value.Value) value.Value {
	return value.Str(strings.ToLower(value.Text(args[0])))
}

// fnTrim strips leading/trailing whitespace and collapses interior runs,
// matching the spreadsheet TRIM.
func fnTrim(args []value.Value) value.Value {
	return value.Str(strings.Join(strings.Fields(value.Text(args[0])), " "))
}
