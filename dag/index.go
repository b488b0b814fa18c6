package dag

import (
	"sort"

	"tally/cell"
)

// RangeEntry is one registered range precedent with its registration count.
type RangeEntry struct {
	Range cell.Range
	Count int
}

// rangeIndex answers point-in-any-range queries for one sheet. Entries are
// kept sorted by start row with a running maximum of end rows, so a lookup
// is a binary search plus a bounded backward scan.
type rangeIndex struct {
	Entries []RangeEntry
	MaxEnd  []uint32
}

func newRangeIndex() *rangeIndex { return &rangeIndex{} }

func (ri *rangeIndex) insert(r cell.Range) {
	r = r.Normalized()
	i := ri.find(r)
	if i >= 0 {
		ri.Entries[i].Count++
		return
	}
	at := sort.Search(len(ri.Entries), func(k int) bool {
		e := ri.Entries[k].Range
		if e.Start.Row != r.Start.Row {
			return e.Start.Row > r.Start.Row
		}
		return e.Start.Col >= r.Start.Col
	})
	ri.Entries = append(ri.Entries, RangeEntry{})
	copy(ri.Entries[at+1:], ri.Entries[at:])
	ri.Entries[at] = RangeEntry{Range: r, Count: 1}
	ri.rebuildMax()
}

func (ri *rangeIndex) remove(r cell.Range) {
	r = r.Normalized()
	i := ri.find(r)
	if i < 0 {
		return
	}
	ri.Entries[i].Count--
	if ri.Entries[i].Count <= 0 {
		ri.Entries = append(ri.Entries[:i], ri.Entries[i+1:]...)
	}
	ri.rebuildMax()
}

func (ri *rangeIndex) find(r cell.Range) int {
	for i, e := range ri.Entries {
		if e.Range == r {
			return i
		}
	}
	return -1
}

func (ri *rangeIndex) rebuildMax() {
	ri.MaxEnd = ri.MaxEnd[:0]
	var max uint32
	for _, e := range ri.Entries {
		if e.Range.End.Row > max {
			max = e.Range.End.Row
		}
		ri.MaxEnd = append(ri.MaxEnd, max)
	}
}

// containing collects every registered range covering addr.
func (ri *rangeIndex) containing(addr cell.Address) []cell.Range {
	var out []cell.Range
	i := sort.Search(len(ri.Entries), func(k int) bool {
		return ri.Entries[k].Range.Start.Row > addr.Row
	})
	for j := i - 1; j >= 0; j-- {
		if ri.MaxEnd[j] < addr.Row {
			break
		}
		r := ri.Entries[j].Range
		if r.End.Row >= addr.Row && r.Start.Col <= addr.Col && r.End.Col >= addr.Col {
			out = append(out, r)
		}
	}
	return out
}

func (ri *rangeIndex) contains(addr cell.Address) bool {
	i := sort.Search(len(ri.Entries), func(k int) bool {
		return ri.Entries[k].Range.Start.Row > addr.Row
	})
	for j := i - 1; j >= 0; j-- {
		if ri.MaxEnd[j] < addr.Row {
			break
		}
		r := ri.Entries[j].Range
		if r.End.Row >= addr.Row && r.Start.Col <= addr.Col && r.End.Col >= addr.Col {
			return true
		}
	}
	return false
}
