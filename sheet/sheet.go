package sheet

import (
	"strconv"
	"strings"
	"sync"

	"tally/cell"
	"tally/dag"
	"tally/engine"
	"tally/value"
)

// Cell is one stored cell: the raw text as entered, the compiled formula
// when the text is one, and the last computed value.
type Cell struct {
	Addr     cell.Address
	Raw      string
	Compiled *engine.CompiledFormula
	Value    value.Value
}

// Sheet is a mutable in-memory sheet. Writes update the dependency graph
// and recompute dirty formulas in topological order.
type Sheet struct {
	mu    sync.Mutex
	eng   *engine.Engine
	graph *dag.Graph
	cells map[cell.Address]*Cell
}

func New() *Sheet {
	return &Sheet{
		eng:   engine.New(),
		graph: dag.New(),
		cells: make(map[cell.Address]*Cell),
	}
}

// Set writes raw into addr. Formula text (leading '=') is compiled, its
// dependency edges replace the cell's previous ones atomically, and every
// affected formula recomputes. A write that would create a reference
// cycle fails and leaves the sheet unchanged.
func (s *Sheet) Set(addr cell.Address, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := dag.CellNode(0, addr)
	old := s.cells[addr]

	var ops []dag.Operation
	if old != nil && old.Compiled != nil {
		for _, dep := range old.Compiled.Dependencies {
			ops = append(ops, dag.RemoveInputOp(node, depNode(dep)))
		}
	}

	var compiled *engine.CompiledFormula
	if strings.HasPrefix(strings.TrimSpace(raw), "=") {
		var err error
		compiled, err = s.eng.Compile(raw)
		if err != nil {
			return err
		}
		for _, dep := range compiled.Dependencies {
			ops = append(ops, dag.AddInputOp(node, depNode(dep), true))
		}
	}

	if err := s.graph.ApplyOperations(ops); err != nil {
		return err
	}

	c := &Cell{Addr: addr, Raw: raw, Compiled: compiled}
	if compiled == nil {
		c.Value = parseLiteral(raw)
	}
	s.cells[addr] = c
	s.graph.MarkDirty(node)
	for _, rn := range s.graph.ContainingRanges(node) {
		s.graph.MarkDirty(rn)
	}
	s.recompute()
	if compiled != nil && c.Value == nil {
		// A formula with no inputs never appears in the dirty set.
		c.Value = s.eng.Evaluate(compiled, &view{sheet: s, base: addr})
	}
	return nil
}

// SetA1 writes raw into the cell named by an A1 reference.
func (s *Sheet) SetA1(ref, raw string) error {
	addr, err := cell.ParseA1(ref)
	if err != nil {
		return err
	}
	return s.Set(addr, raw)
}

// Get returns the computed value at addr; empty cells read as Blank.
func (s *Sheet) Get(addr cell.Address) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valueAt(addr)
}

// GetA1 reads the cell named by an A1 reference.
func (s *Sheet) GetA1(ref string) (value.Value, error) {
	addr, err := cell.ParseA1(ref)
	if err != nil {
		return nil, err
	}
	return s.Get(addr), nil
}

// Precedents lists the A1 references the cell at ref reads.
func (s *Sheet) Precedents(ref string) ([]string, error) {
	addr, err := cell.ParseA1(ref)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.graph.Precedents(dag.CellNode(0, addr)) {
		switch p.Kind {
		case dag.KindCell:
			out = append(out, cell.FormatA1(p.Cell))
		case dag.KindRange:
			out = append(out, p.Range.String())
		default:
			out = append(out, p.ID)
		}
	}
	return out, nil
}

// Clear removes every cell and resets the graph.
func (s *Sheet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = dag.New()
	s.cells = make(map[cell.Address]*Cell)
}

// DisplayCell is a cell's raw text and rendered value for UIs.
type DisplayCell struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

// Snapshot returns every non-empty cell keyed by A1 reference.
func (s *Sheet) Snapshot() map[string]DisplayCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]DisplayCell, len(s.cells))
	for addr, c := range s.cells {
		display := ""
		if c.Value != nil {
			display = value.Text(c.Value)
		}
		out[cell.FormatA1(addr)] = DisplayCell{Raw: c.Raw, Display: display}
	}
	return out
}

func (s *Sheet) valueAt(addr cell.Address) value.Value {
	if c, ok := s.cells[addr]; ok && c.Value != nil {
		return c.Value
	}
	return value.Blank
}

// recompute evaluates dirty formula cells; the dirty order guarantees
// every input is up to date before its readers. Caller holds s.mu.
func (s *Sheet) recompute() {
	for _, ref := range s.graph.TakeDirty() {
		if ref.Kind != dag.KindCell {
			continue
		}
		c, ok := s.cells[ref.Cell]
		if !ok || c.Compiled == nil {
			continue
		}
		base := ref.Cell
		c.Value = s.eng.Evaluate(c.Compiled, &view{sheet: s, base: base})
	}
}

func depNode(dep cell.Ref) dag.NodeRef {
	if dep.Kind == cell.RefRange {
		return dag.RangeNode(0, dep.Range)
	}
	return dag.CellNode(0, dep.Cell)
}

// parseLiteral types plain cell text: integer, float, boolean, or string.
func parseLiteral(raw string) value.Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return value.Blank
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return value.Int(n)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return value.Num(f)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	return value.Str(raw)
}

// view resolves engine reads against the sheet with a fixed base cell.
type view struct {
	sheet *Sheet
	base  cell.Address
}

func (v *view) GetCell(addr cell.Address) value.Value {
	return v.sheet.valueAt(addr)
}

func (v *view) GetRange(r cell.Range) []value.Value {
	n := r.Normalized()
	rows := make([]value.Value, 0, n.Rows())
	for row := n.Start.Row; row <= n.End.Row; row++ {
		cols := make([]value.Value, 0, n.Cols())
		for col := n.Start.Col; col <= n.End.Col; col++ {
			cols = append(cols, v.sheet.valueAt(cell.Address{Row: row, Col: col}))
		}
		rows = append(rows, &value.Array{Elements: cols})
	}
	return rows
}

func (v *view) GetSheetCell(_ string, addr cell.Address) value.Value {
	return v.GetCell(addr)
}

func (v *view) GetSheetRange(_ string, r cell.Range) []value.Value {
	return v.GetRange(r)
}

func (v *view) CurrentCell() (cell.Address, bool) {
	return v.base, true
}
