package engine

import (
	"sort"
	"strings"

	"tally/value"
)

func registerLookup(r *Registry) {
	r.Register(&Function{Name: "VLOOKUP", MinArgs: 3, MaxArgs: 4, Fn: fnVLookup})
	r.Register(&Function{Name: "HLOOKUP", MinArgs: 3, MaxArgs: 4, Fn: fnHLookup})
	r.Register(&Function{Name: "INDEX", MinArgs: 2, MaxArgs: 3, Fn: fnIndex})
	r.Register(&Function{Name: "MATCH", MinArgs: 2, MaxArgs: 3, Fn: fnMatch})
	r.Register(&Function{Name: "XLOOKUP", MinArgs: 3, MaxArgs: 4, Fn: fnXLookup})
	// Arity metadata only; the evaluator resolves OFFSET against the sheet.
	r.Register(&Function{Name: "OFFSET", MinArgs: 3, MaxArgs: 5, Fn: NotImplemented})
}

// tableRows views v as a rectangular table: an array of row arrays, or a
// flat array as a single row.
func tableRows(v value.Value) ([][]value.Value, bool) {
	arr, ok := v.(*value.Array)
	if !ok {
		return nil, false
	}
	rows := make([][]value.Value, 0, len(arr.Elements))
	flat := false
	for _, el := range arr.Elements {
		row, ok := el.(*value.Array)
		if !ok {
			flat = true
			break
		}
		rows = append(rows, row.Elements)
	}
	if flat {
		return [][]value.Value{arr.Elements}, true
	}
	return rows, true
}

// flatten collects every scalar of v in row-major order.
func flatten(v value.Value) []value.Value {
	var out []value.Value
	walkValues([]value.Value{v}, func(s value.Value) {
		out = append(out, s)
	})
	return out
}

func typeRank(v value.Value) int {
	switch v.(type) {
	case *value.Integer, *value.Float, *value.Empty:
		return 0
	case *value.String:
		return 1
	case *value.Boolean:
		return 2
	}
	return 3
}

// compareKeys orders lookup values the spreadsheet way: numbers before
// text before logicals, strings case-insensitive.
func compareKeys(a, b value.Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		as := strings.ToLower(a.(*value.String).Value)
		bs := strings.ToLower(b.(*value.String).Value)
		return strings.Compare(as, bs)
	case 2:
		ab := a.(*value.Boolean).Value
		bb := b.(*value.Boolean).Value
		return boolRank(ab) - boolRank(bb)
	default:
		af, _ := value.AsNumber(a)
		bf, _ := value.AsNumber(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func lookupEqual(a, b value.Value) bool {
	return typeRank(a) == typeRank(b) && compareKeys(a, b) == 0
}

// findInColumn locates key in column col of rows. Binary search assumes
// the column ascending; both strategies require an exact match.
func findInColumn(rows [][]value.Value, col int, key value.Value, linear bool) int {
	if linear {
		for i, row := range rows {
			if col < len(row) && lookupEqual(row[col], key) {
				return i
			}
		}
		return -1
	}
	i := sort.Search(len(rows), func(k int) bool {
		if col >= len(rows[k]) {
			return true
		}
		return compareKeys(rows[k][col], key) >= 0
	})
	if i < len(rows) && col < len(rows[i]) && lookupEqual(rows[i][col], key) {
		return i
	}
	return -1
}

func fnVLookup(args []value.Value) value.Value {
	key := args[0]
	rows, ok := tableRows(args[1])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	colF, ok := value.AsNumber(args[2])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	colIdx := int(colF)

	linear := false
	if len(args) > 3 {
		exact, ok := value.Truthy(args[3])
		if !ok {
			return value.NewError(value.ErrValue)
		}
		linear = exact
	}

	if colIdx < 1 {
		return value.NewError(value.ErrRef)
	}
	hit := findInColumn(rows, 0, key, linear)
	if hit < 0 {
		return value.NewError(value.ErrNA)
	}
	if colIdx > len(rows[hit]) {
		return value.NewError(value.ErrRef)
	}
	return rows[hit][colIdx-1]
}

func fnHLookup(args []value.Value) value.Value {
	key := args[0]
	rows, ok := tableRows(args[1])
	if !ok || len(rows) == 0 {
		return value.NewError(value.ErrValue)
	}
	rowF, ok := value.AsNumber(args[2])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	rowIdx := int(rowF)

	linear := false
	if len(args) > 3 {
		exact, ok := value.Truthy(args[3])
		if !ok {
			return value.NewError(value.ErrValue)
		}
		linear = exact
	}

	if rowIdx < 1 || rowIdx > len(rows) {
		return value.NewError(value.ErrRef)
	}

	first := rows[0]
	hit := -1
	if linear {
		for i, v := range first {
			if lookupEqual(v, key) {
				hit = i
				break
			}
		}
	} else {
		i := sort.Search(len(first), func(k int) bool {
			return compareKeys(first[k], key) >= 0
		})
		if i < len(first) && lookupEqual(first[i], key) {
			hit = i
		}
	}
	if hit < 0 {
		return value.NewError(value.ErrNA)
	}
	if hit >= len(rows[rowIdx-1]) {
		return value.NewError(value.ErrRef)
	}
	return rows[rowIdx-1][hit]
}

func fnIndex(args []value.Value) value.Value {
	rows, ok := tableRows(args[0])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	rowF, ok := value.AsNumber(args[1])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	idx := int(rowF)

	if len(args) == 2 {
		// Single index into a one-row table selects a column.
		if len(rows) == 1 {
			if idx < 1 || idx > len(rows[0]) {
				return value.NewError(value.ErrRef)
			}
			return rows[0][idx-1]
		}
		if idx < 1 || idx > len(rows) {
			return value.NewError(value.ErrRef)
		}
		return &value.Array{Elements: rows[idx-1]}
	}

	colF, ok := value.AsNumber(args[2])
	if !ok {
		return value.NewError(value.ErrValue)
	}
	col := int(colF)
	if idx < 1 || idx > len(rows) || col < 1 || col > len(rows[idx-1]) {
		return value.NewError(value.ErrRef)
	}
	return rows[idx-1][col-1]
}

func fnMatch(args []value.Value) value.Value {
	key := args[0]
	vec := flatten(args[1])
	matchType := 1
	if len(args) > 2 {
		f, ok := value.AsNumber(args[2])
		if !ok {
			return value.NewError(value.ErrValue)
		}
		matchType = int(f)
	}

	switch matchType {
	case 0:
		for i, v := range vec {
			if lookupEqual(v, key) {
				return value.Int(int64(i + 1))
			}
		}
	case 1:
		// Largest value <= key; assumes ascending order.
		best := -1
		for i, v := range vec {
			if typeRank(v) != typeRank(key) {
				continue
			}
			if compareKeys(v, key) <= 0 {
				best = i
			} else {
				break
			}
		}
		if best >= 0 {
			return value.Int(int64(best + 1))
		}
	case -1:
		// Smallest value >= key; assumes descending order.
		best := -1
		for i, v := range vec {
			if typeRank(v) != typeRank(key) {
				continue
			}
			if compareKeys(v, key) >= 0 {
				best = i
			} else {
				break
			}
		}
		if best >= 0 {
			return value.Int(int64(best + 1))
		}
	default:
		return value.NewError(value.ErrValue)
	}
	return value.NewError(value.ErrNA)
}

func fnXLookup(args []value.Value) value.Value {
	key := args[0]
	lookup := flatten(args[1])
	ret := flatten(args[2])
	if len(lookup) != len(ret) {
		return value.NewError(value.ErrValue)
	}
	for i, v := range lookup {
		if lookupEqual(v, key) {
			return ret[i]
		}
	}
	if len(args) > 3 {
		return args[3]
	}
	return value.NewError(value.ErrNA)
}
