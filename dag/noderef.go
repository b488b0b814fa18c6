package dag

import (
	"fmt"
	"strconv"
	"strings"

	"tally/cell"
)

// RefKind discriminates DAG node identities.
type RefKind int

const (
	KindCell RefKind = iota
	KindRange
	KindStatic
)

// NodeRef names a node: a cell or range on a sheet, or a static identifier
// such as a named constant.
type NodeRef struct {
	Kind  RefKind
	Sheet uint32
	Cell  cell.Address
	Range cell.Range
	ID    string
}

func CellNode(sheet uint32, addr cell.Address) NodeRef {
	return NodeRef{Kind: KindCell, Sheet: sheet, Cell: addr}
}

func RangeNode(sheet uint32, r cell.Range) NodeRef {
	return NodeRef{Kind: KindRange, Sheet: sheet, Range: r.Normalized()}
}

func StaticNode(id string) NodeRef {
	return NodeRef{Kind: KindStatic, ID: id}
}

// Key is the deterministic stringification used as the graph map key and
// in the JSON form.
func (n NodeRef) Key() string {
	switch n.Kind {
	case KindCell:
		return fmt.Sprintf("c:%d:%d:%d", n.Sheet, n.Cell.Row, n.Cell.Col)
	case KindRange:
		r := n.Range.Normalized()
		return fmt.Sprintf("r:%d:%d:%d:%d:%d",
			n.Sheet, r.Start.Row, r.Start.Col, r.End.Row, r.End.Col)
	}
	return "s:" + n.ID
}

func (n NodeRef) String() string { return n.Key() }

// ParseKey inverts Key.
func ParseKey(key string) (NodeRef, error) {
	switch {
	case strings.HasPrefix(key, "s:"):
		return StaticNode(key[2:]), nil
	case strings.HasPrefix(key, "c:"):
		parts := strings.Split(key[2:], ":")
		if len(parts) != 3 {
			return NodeRef{}, fmt.Errorf("malformed cell key %q", key)
		}
		nums, err := parseUints(parts)
		if err != nil {
			return NodeRef{}, fmt.Errorf("malformed cell key %q: %w", key, err)
		}
		return CellNode(nums[0], cell.Address{Row: nums[1], Col: nums[2]}), nil
	case strings.HasPrefix(key, "r:"):
		parts := strings.Split(key[2:], ":")
		if len(parts) != 5 {
			return NodeRef{}, fmt.Errorf("malformed range key %q", key)
		}
		nums, err := parseUints(parts)
		if err != nil {
			return NodeRef{}, fmt.Errorf("malformed range key %q: %w", key, err)
		}
		return RangeNode(nums[0], cell.NewRange(
			cell.Address{Row: nums[1], Col: nums[2]},
			cell.Address{Row: nums[3], Col: nums[4]},
		)), nil
	}
	return NodeRef{}, fmt.Errorf("unknown node key %q", key)
}

func parseUints(parts []string) ([]uint32, error) {
	out := make([]uint32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}
