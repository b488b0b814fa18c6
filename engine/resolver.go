package engine

import (
	"tally/cell"
	"tally/value"
)

// ValueResolver is the host-supplied capability the engine reads cells
// through. The engine never mutates the resolver.
type ValueResolver interface {
	// GetCell returns the value at addr; missing cells are Empty.
	GetCell(addr cell.Address) value.Value
	// GetRange returns the normalized rectangle row-major, one Array per row.
	GetRange(r cell.Range) []value.Value
	// GetSheetCell resolves a sheet-qualified cell.
	GetSheetCell(sheet string, addr cell.Address) value.Value
	// GetSheetRange resolves a sheet-qualified range.
	GetSheetRange(sheet string, r cell.Range) []value.Value
	// CurrentCell is the base for relative R1C1 references; ok is false
	// when no base cell is set.
	CurrentCell() (cell.Address, bool)
}

// MapResolver is a ValueResolver over an in-memory cell map, used by tests
// and one-shot CLI evaluation.
type MapResolver struct {
	Cells map[cell.Address]value.Value
	Base  *cell.Address
}

func NewMapResolver() *MapResolver {
	return &MapResolver{Cells: make(map[cell.Address]value.Value)}
}

func (m *MapResolver) Set(addr cell.Address, v value.Value) { m.Cells[addr] = v }

func (m *MapResolver) GetCell(addr cell.Address) value.Value {
	if v, ok := m.Cells[addr]; ok {
		return v
	}
	return value.Blank
}

func (m *MapResolver) GetRange(r cell.Range) []value.Value {
	n := r.Normalized()
	rows := make([]value.Value, 0, n.Rows())
	for row := n.Start.Row; row <= n.End.Row; row++ {
		cols := make([]value.Value, 0, n.Cols())
		for col := n.Start.Col; col <= n.End.Col; col++ {
			cols = append(cols, m.GetCell(cell.Address{Row: row, Col: col}))
		}
		rows = append(rows, &value.Array{Elements: cols})
	}
	return rows
}

func (m *MapResolver) GetSheetCell(_ string, addr cell.Address) value.Value {
	return m.GetCell(addr)
}

func (m *MapResolver) GetSheetRange(_ string, r cell.Range) []value.Value {
	return m.GetRange(r)
}

func (m *MapResolver) CurrentCell() (cell.Address, bool) {
	if m.Base == nil {
		return cell.Address{}, false
	}
	return *m.Base, true
}
