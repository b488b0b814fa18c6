package cell

import "fmt"

// RefKind distinguishes single-cell from range dependencies.
type RefKind int

const (
	RefCell RefKind = iota
	RefRange
)

// Ref is one entry in a compiled formula's dependency list.
type Ref struct {
	Kind  RefKind
	Cell  Address
	Range Range
}

func CellRef(a Address) Ref { return Ref{Kind: RefCell, Cell: a} }

func RangeRef(r Range) Ref { return Ref{Kind: RefRange, Range: r.Normalized()} }

// Key is a deterministic identity used for deduplication.
func (r Ref) Key() string {
	if r.Kind == RefRange {
		n := r.Range.Normalized()
		return fmt.Sprintf("r:%d:%d:%d:%d", n.Start.Row, n.Start.Col, n.End.Row, n.End.Col)
	}
	return fmt.Sprintf("c:%d:%d", r.Cell.Row, r.Cell.Col)
}

func (r Ref) String() string {
	if r.Kind == RefRange {
		return r.Range.String()
	}
	return r.Cell.String()
}
