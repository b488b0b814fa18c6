package boundary

import (
	"tally/cell"
	"tally/value"
)

// payloadResolver reads cells out of a sheet payload. Sparse payloads get
// a (row, col) index built once per evaluation batch.
type payloadResolver struct {
	sheet   *SheetPayload
	globals map[string]ToonValue
	sparse  map[[2]uint32]value.Value
}

func newPayloadResolver(sheet *SheetPayload, globals map[string]ToonValue) *payloadResolver {
	r := &payloadResolver{sheet: sheet, globals: globals}
	if !sheet.IsDense() {
		r.sparse = make(map[[2]uint32]value.Value, len(sheet.Items))
		for _, item := range sheet.Items {
			r.sparse[[2]uint32{item.R, item.C}] = ToValue(item.V)
		}
	}
	return r
}

func (r *payloadResolver) GetCell(addr cell.Address) value.Value {
	if r.sparse != nil {
		if v, ok := r.sparse[[2]uint32{addr.Row, addr.Col}]; ok {
			return v
		}
		return value.Blank
	}
	toon, ok := r.sheet.GetCell(addr.Row, addr.Col)
	if !ok {
		return value.Blank
	}
	return ToValue(toon)
}

func (r *payloadResolver) GetRange(rng cell.Range) []value.Value {
	n := rng.Normalized()
	rows := make([]value.Value, 0, n.Rows())
	for row := n.Start.Row; row <= n.End.Row; row++ {
		cols := make([]value.Value, 0, n.Cols())
		for col := n.Start.Col; col <= n.End.Col; col++ {
			cols = append(cols, r.GetCell(cell.Address{Row: row, Col: col}))
		}
		rows = append(rows, &value.Array{Elements: cols})
	}
	return rows
}

// The batch payload is single-sheet; qualified reads behave like
// unqualified ones.
func (r *payloadResolver) GetSheetCell(_ string, addr cell.Address) value.Value {
	return r.GetCell(addr)
}

func (r *payloadResolver) GetSheetRange(_ string, rng cell.Range) []value.Value {
	return r.GetRange(rng)
}

// The batch path carries no per-formula base cell, so relative R1C1
// references resolve to #REF!.
func (r *payloadResolver) CurrentCell() (cell.Address, bool) {
	return cell.Address{}, false
}
