package dag

import (
	"encoding/json"
	"fmt"
	"sort"

	"tally/cell"
)

// RefJSON is the serialized node identity.
type RefJSON struct {
	Kind   string `json:"kind"`
	Sheet  uint32 `json:"sheet,omitempty"`
	Row    uint32 `json:"row,omitempty"`
	Col    uint32 `json:"col,omitempty"`
	EndRow uint32 `json:"end_row,omitempty"`
	EndCol uint32 `json:"end_col,omitempty"`
	ID     string `json:"id,omitempty"`
}

// NodeJSON is the serialized form of one node with its edge sets.
type NodeJSON struct {
	Ref        RefJSON  `json:"ref"`
	Dirty      bool     `json:"dirty,omitempty"`
	Precedents []string `json:"precedents"`
	Dependents []string `json:"dependents"`
}

type nodeEntry struct {
	Key  string   `json:"key"`
	Node NodeJSON `json:"node"`
}

func refToJSON(ref NodeRef) RefJSON {
	switch ref.Kind {
	case KindCell:
		return RefJSON{Kind: "cell", Sheet: ref.Sheet, Row: ref.Cell.Row, Col: ref.Cell.Col}
	case KindRange:
		r := ref.Range.Normalized()
		return RefJSON{
			Kind: "range", Sheet: ref.Sheet,
			Row: r.Start.Row, Col: r.Start.Col, EndRow: r.End.Row, EndCol: r.End.Col,
		}
	}
	return RefJSON{Kind: "static", ID: ref.ID}
}

func refFromJSON(rj RefJSON) (NodeRef, error) {
	switch rj.Kind {
	case "cell":
		return CellNode(rj.Sheet, cell.Address{Row: rj.Row, Col: rj.Col}), nil
	case "range":
		return RangeNode(rj.Sheet, cell.NewRange(
			cell.Address{Row: rj.Row, Col: rj.Col},
			cell.Address{Row: rj.EndRow, Col: rj.EndCol},
		)), nil
	case "static":
		return StaticNode(rj.ID), nil
	}
	return NodeRef{}, fmt.Errorf("unknown ref kind %q", rj.Kind)
}

// ToJSON serializes the graph as a key-sorted node list.
func (g *Graph) ToJSON() ([]byte, error) {
	keys := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]nodeEntry, 0, len(keys))
	for _, k := range keys {
		n := g.nodes[k]
		entries = append(entries, nodeEntry{
			Key: k,
			Node: NodeJSON{
				Ref:        refToJSON(n.Ref),
				Dirty:      n.Dirty,
				Precedents: sortedKeys(n.Precedents),
				Dependents: sortedKeys(n.Dependents),
			},
		})
	}
	return json.Marshal(entries)
}

// FromJSON replaces the graph's state with the serialized node list,
// rebuilding edge mirrors and the range index.
func (g *Graph) FromJSON(data []byte) error {
	var entries []nodeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	nodes := make(map[string]*Node, len(entries))
	for _, e := range entries {
		ref, err := refFromJSON(e.Node.Ref)
		if err != nil {
			return fmt.Errorf("node %q: %w", e.Key, err)
		}
		n := &Node{
			Ref:        ref,
			Dirty:      e.Node.Dirty,
			Precedents: make(map[string]struct{}, len(e.Node.Precedents)),
			Dependents: make(map[string]struct{}, len(e.Node.Dependents)),
		}
		for _, p := range e.Node.Precedents {
			n.Precedents[p] = struct{}{}
		}
		for _, d := range e.Node.Dependents {
			n.Dependents[d] = struct{}{}
		}
		nodes[e.Key] = n
	}

	// Materialize nodes referenced only from edge sets and enforce the
	// mirror invariant.
	for key, n := range nodes {
		for p := range n.Precedents {
			pn, ok := nodes[p]
			if !ok {
				ref, err := ParseKey(p)
				if err != nil {
					return err
				}
				pn = &Node{
					Ref:        ref,
					Precedents: make(map[string]struct{}),
					Dependents: make(map[string]struct{}),
				}
				nodes[p] = pn
			}
			pn.Dependents[key] = struct{}{}
		}
	}

	ranges := make(map[uint32]*rangeIndex)
	for _, n := range nodes {
		for p := range n.Precedents {
			pn := nodes[p]
			if pn.Ref.Kind != KindRange {
				continue
			}
			ri, ok := ranges[pn.Ref.Sheet]
			if !ok {
				ri = newRangeIndex()
				ranges[pn.Ref.Sheet] = ri
			}
			ri.insert(pn.Ref.Range)
		}
	}

	g.nodes = nodes
	g.ranges = ranges
	return nil
}
