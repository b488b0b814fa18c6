package dag

import (
	"sort"

	"github.com/tiendc/go-deepcopy"
)

// DefaultMaxRangeCells caps how many cells one range node may span.
const DefaultMaxRangeCells uint64 = 1_048_576

type Options struct {
	MaxRangeCells uint64
}

// Node is one vertex of the dependency graph. Precedents are the nodes it
// reads; Dependents are the nodes that read it. The two sets mirror each
// other across every edge.
type Node struct {
	Ref        NodeRef
	Dirty      bool
	Precedents map[string]struct{}
	Dependents map[string]struct{}
}

// Graph tracks formula-to-input edges with cycle rejection and dirty
// propagation. Mutation is not safe for concurrent use.
type Graph struct {
	nodes         map[string]*Node
	ranges        map[uint32]*rangeIndex
	maxRangeCells uint64
}

func New() *Graph {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Graph {
	max := opts.MaxRangeCells
	if max == 0 {
		max = DefaultMaxRangeCells
	}
	return &Graph{
		nodes:         make(map[string]*Node),
		ranges:        make(map[uint32]*rangeIndex),
		maxRangeCells: max,
	}
}

func (g *Graph) ensure(ref NodeRef) *Node {
	key := ref.Key()
	if n, ok := g.nodes[key]; ok {
		return n
	}
	n := &Node{
		Ref:        ref,
		Precedents: make(map[string]struct{}),
		Dependents: make(map[string]struct{}),
	}
	g.nodes[key] = n
	return n
}

// Has reports whether ref is a known node.
func (g *Graph) Has(ref NodeRef) bool {
	_, ok := g.nodes[ref.Key()]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) checkRangeCap(ref NodeRef) error {
	if ref.Kind != KindRange {
		return nil
	}
	if cells := ref.Range.Cells(); cells > g.maxRangeCells {
		return &RangeTooLargeError{Cells: cells, Max: g.maxRangeCells}
	}
	return nil
}

// AddInput records the edge formula -> input. It fails with
// CircularDependencyError when the edge would close a cycle and
// RangeTooLargeError when a range operand exceeds the cell cap.
// Duplicate edges are idempotent.
func (g *Graph) AddInput(formula, input NodeRef, markDirty bool) error {
	if err := g.checkRangeCap(input); err != nil {
		return err
	}
	if err := g.checkRangeCap(formula); err != nil {
		return err
	}

	fk, ik := formula.Key(), input.Key()
	if fk == ik || g.reachable(ik, fk) {
		return &CircularDependencyError{Formula: fk, Input: ik}
	}

	fn := g.ensure(formula)
	in := g.ensure(input)
	if _, ok := fn.Precedents[ik]; !ok {
		fn.Precedents[ik] = struct{}{}
		in.Dependents[fk] = struct{}{}
		if input.Kind == KindRange {
			g.rangeIdx(input.Sheet).insert(input.Range)
		}
	}

	if markDirty {
		g.markDirtyKey(fk)
	}
	return nil
}

// RemoveInput deletes the edge formula -> input; absent edges are a no-op.
// Orphaned nodes are kept.
func (g *Graph) RemoveInput(formula, input NodeRef) {
	fk, ik := formula.Key(), input.Key()
	fn, ok := g.nodes[fk]
	if !ok {
		return
	}
	if _, ok := fn.Precedents[ik]; !ok {
		return
	}
	delete(fn.Precedents, ik)
	if in, ok := g.nodes[ik]; ok {
		delete(in.Dependents, fk)
	}
	if input.Kind == KindRange {
		if ri, ok := g.ranges[input.Sheet]; ok {
			ri.remove(input.Range)
		}
	}
}

// reachable walks the precedents relation from key `from`, reporting
// whether `target` is reachable.
func (g *Graph) reachable(from, target string) bool {
	if from == target {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[k] {
			continue
		}
		visited[k] = true
		n, ok := g.nodes[k]
		if !ok {
			continue
		}
		for p := range n.Precedents {
			if p == target {
				return true
			}
			stack = append(stack, p)
		}
	}
	return false
}

// Precedents returns a sorted snapshot of the nodes ref reads.
func (g *Graph) Precedents(ref NodeRef) []NodeRef {
	n, ok := g.nodes[ref.Key()]
	if !ok {
		return nil
	}
	return g.refsFromKeys(n.Precedents)
}

// Dependents returns a sorted snapshot of the nodes reading ref.
func (g *Graph) Dependents(ref NodeRef) []NodeRef {
	n, ok := g.nodes[ref.Key()]
	if !ok {
		return nil
	}
	return g.refsFromKeys(n.Dependents)
}

func (g *Graph) refsFromKeys(keys map[string]struct{}) []NodeRef {
	sorted := sortedKeys(keys)
	out := make([]NodeRef, 0, len(sorted))
	for _, k := range sorted {
		if n, ok := g.nodes[k]; ok {
			out = append(out, n.Ref)
		}
	}
	return out
}

// HasArrayNode reports whether the cell named by ref lies inside any
// registered range precedent on its sheet.
func (g *Graph) HasArrayNode(ref NodeRef) bool {
	if ref.Kind != KindCell {
		return false
	}
	ri, ok := g.ranges[ref.Sheet]
	if !ok {
		return false
	}
	return ri.contains(ref.Cell)
}

// ContainingRanges lists the registered range nodes covering a cell ref.
func (g *Graph) ContainingRanges(ref NodeRef) []NodeRef {
	if ref.Kind != KindCell {
		return nil
	}
	ri, ok := g.ranges[ref.Sheet]
	if !ok {
		return nil
	}
	var out []NodeRef
	for _, r := range ri.containing(ref.Cell) {
		out = append(out, RangeNode(ref.Sheet, r))
	}
	return out
}

func (g *Graph) rangeIdx(sheet uint32) *rangeIndex {
	ri, ok := g.ranges[sheet]
	if !ok {
		ri = newRangeIndex()
		g.ranges[sheet] = ri
	}
	return ri
}

// MarkDirty flags ref and its transitive dependents for recomputation.
func (g *Graph) MarkDirty(ref NodeRef) {
	g.markDirtyKey(ref.Key())
}

func (g *Graph) markDirtyKey(key string) {
	n, ok := g.nodes[key]
	if !ok {
		return
	}
	n.Dirty = true
	stack := []string{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur, ok := g.nodes[k]
		if !ok {
			continue
		}
		for d := range cur.Dependents {
			dep, ok := g.nodes[d]
			if !ok || dep.Dirty {
				continue
			}
			dep.Dirty = true
			stack = append(stack, d)
		}
	}
}

// DirtyNodes returns the dirty set ordered so every node follows all of
// its dirty precedents.
func (g *Graph) DirtyNodes() []NodeRef {
	return g.dirtyTopo()
}

// TakeDirty returns the ordered dirty set and clears the flags.
func (g *Graph) TakeDirty() []NodeRef {
	out := g.dirtyTopo()
	for _, ref := range out {
		if n, ok := g.nodes[ref.Key()]; ok {
			n.Dirty = false
		}
	}
	return out
}

func (g *Graph) dirtyTopo() []NodeRef {
	dirty := make(map[string]*Node)
	for k, n := range g.nodes {
		if n.Dirty {
			dirty[k] = n
		}
	}
	indegree := make(map[string]int, len(dirty))
	for k, n := range dirty {
		count := 0
		for p := range n.Precedents {
			if _, ok := dirty[p]; ok {
				count++
			}
		}
		indegree[k] = count
	}

	var ready []string
	for k, deg := range indegree {
		if deg == 0 {
			ready = append(ready, k)
		}
	}
	sort.Strings(ready)

	out := make([]NodeRef, 0, len(dirty))
	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		out = append(out, dirty[k].Ref)
		var unlocked []string
		for d := range dirty[k].Dependents {
			if _, ok := dirty[d]; !ok {
				continue
			}
			indegree[d]--
			if indegree[d] == 0 {
				unlocked = append(unlocked, d)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}
	return out
}

// detach removes every edge touching key, keeping mirrors and the range
// index consistent.
func (g *Graph) detach(key string) {
	n, ok := g.nodes[key]
	if !ok {
		return
	}
	for p := range n.Precedents {
		if pn, ok := g.nodes[p]; ok {
			delete(pn.Dependents, key)
			if pn.Ref.Kind == KindRange {
				if ri, ok := g.ranges[pn.Ref.Sheet]; ok {
					ri.remove(pn.Ref.Range)
				}
			}
		}
	}
	for d := range n.Dependents {
		if dn, ok := g.nodes[d]; ok {
			delete(dn.Precedents, key)
		}
		if n.Ref.Kind == KindRange {
			if ri, ok := g.ranges[n.Ref.Sheet]; ok {
				ri.remove(n.Ref.Range)
			}
		}
	}
	n.Precedents = make(map[string]struct{})
	n.Dependents = make(map[string]struct{})
}

type graphSnapshot struct {
	nodes  map[string]*Node
	ranges map[uint32]*rangeIndex
}

func (g *Graph) snapshot() (graphSnapshot, error) {
	var snap graphSnapshot
	if err := deepcopy.Copy(&snap.nodes, g.nodes); err != nil {
		return snap, err
	}
	if err := deepcopy.Copy(&snap.ranges, g.ranges); err != nil {
		return snap, err
	}
	return snap, nil
}

func (g *Graph) restore(snap graphSnapshot) {
	g.nodes = snap.nodes
	g.ranges = snap.ranges
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
