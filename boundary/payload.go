package boundary

import (
	"tally/cell"
	"tally/value"
)

type ToonCellAddr struct {
	R uint32 `json:"r" msgpack:"r"`
	C uint32 `json:"c" msgpack:"c"`
}

type ToonRange struct {
	S ToonCellAddr `json:"s" msgpack:"s"`
	E ToonCellAddr `json:"e" msgpack:"e"`
}

func (r ToonRange) CellRange() cell.Range {
	return cell.NewRange(
		cell.Address{Row: r.S.R, Col: r.S.C},
		cell.Address{Row: r.E.R, Col: r.E.C},
	)
}

func RangeToToon(r cell.Range) ToonRange {
	n := r.Normalized()
	return ToonRange{
		S: ToonCellAddr{R: n.Start.Row, C: n.Start.Col},
		E: ToonCellAddr{R: n.End.Row, C: n.End.Col},
	}
}

type SparseCell struct {
	R uint32    `json:"r" msgpack:"r"`
	C uint32    `json:"c" msgpack:"c"`
	V ToonValue `json:"v" msgpack:"v"`
}

// SheetPayload carries a rectangular sheet region in one of two
// encodings: dense (row-major Values) or sparse (Items). A payload with a
// nil Values slice is sparse.
type SheetPayload struct {
	Range  ToonRange    `json:"range" msgpack:"range"`
	Values []ToonValue  `json:"values,omitempty" msgpack:"values,omitempty"`
	Items  []SparseCell `json:"items,omitempty" msgpack:"items,omitempty"`
}

func (p *SheetPayload) IsDense() bool { return p.Values != nil }

// Dimensions returns (rows, cols) of the declared range.
func (p *SheetPayload) Dimensions() (uint32, uint32) {
	return p.Range.E.R - p.Range.S.R + 1, p.Range.E.C - p.Range.S.C + 1
}

func (p *SheetPayload) inRange(row, col uint32) bool {
	return row >= p.Range.S.R && row <= p.Range.E.R &&
		col >= p.Range.S.C && col <= p.Range.E.C
}

// GetCell returns the value at (row, col); ok is false outside the range.
// Absent sparse cells read as Null.
func (p *SheetPayload) GetCell(row, col uint32) (ToonValue, bool) {
	if !p.inRange(row, col) {
		return ToonValue{}, false
	}
	if p.IsDense() {
		_, cols := p.Dimensions()
		index := int(row-p.Range.S.R)*int(cols) + int(col-p.Range.S.C)
		if index >= len(p.Values) {
			return ToonNull(), true
		}
		return p.Values[index], true
	}
	for _, item := range p.Items {
		if item.R == row && item.C == col {
			return item.V, true
		}
	}
	return ToonNull(), true
}

// ShouldUseSparse picks the sparse encoding for low-density regions:
// under 20% filled, or over 10k cells and under 50% filled.
func ShouldUseSparse(rows, cols uint32, nonEmpty int) bool {
	total := int(rows) * int(cols)
	if total == 0 {
		return false
	}
	density := float64(nonEmpty) / float64(total)
	return density < 0.2 || (total > 10_000 && density < 0.5)
}

// FromValues builds a payload for the rectangle [start, end], choosing
// the encoding by density. rows is row-major.
func FromValues(start, end cell.Address, rows [][]value.Value) SheetPayload {
	r := cell.NewRange(start, end).Normalized()
	nRows := r.Rows()
	nCols := r.Cols()

	nonEmpty := 0
	var items []SparseCell
	for ri, row := range rows {
		for ci, v := range row {
			if _, empty := v.(*value.Empty); empty || v == nil {
				continue
			}
			nonEmpty++
			items = append(items, SparseCell{
				R: r.Start.Row + uint32(ri),
				C: r.Start.Col + uint32(ci),
				V: FromValue(v),
			})
		}
	}

	if ShouldUseSparse(nRows, nCols, nonEmpty) {
		return SheetPayload{Range: RangeToToon(r), Items: items}
	}

	flat := make([]ToonValue, 0, int(nRows)*int(nCols))
	for ri := uint32(0); ri < nRows; ri++ {
		for ci := uint32(0); ci < nCols; ci++ {
			var v value.Value
			if int(ri) < len(rows) && int(ci) < len(rows[ri]) && rows[ri][ci] != nil {
				v = rows[ri][ci]
			} else {
				v = value.Blank
			}
			flat = append(flat, FromValue(v))
		}
	}
	return SheetPayload{Range: RangeToToon(r), Values: flat}
}
