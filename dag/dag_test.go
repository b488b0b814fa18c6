package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/cell"
)

func cellAt(sheet, row, col uint32) NodeRef {
	return CellNode(sheet, cell.Address{Row: row, Col: col})
}

func rangeAt(sheet, r1, c1, r2, c2 uint32) NodeRef {
	return RangeNode(sheet, cell.NewRange(
		cell.Address{Row: r1, Col: c1},
		cell.Address{Row: r2, Col: c2},
	))
}

func TestAddAndRemoveInputs(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)

	require.NoError(t, g.AddInput(formula, input, true))

	precedents := g.Precedents(formula)
	require.Len(t, precedents, 1)
	assert.Equal(t, input.Key(), precedents[0].Key())

	dependents := g.Dependents(input)
	require.Len(t, dependents, 1)
	assert.Equal(t, formula.Key(), dependents[0].Key())

	g.RemoveInput(formula, input)
	assert.Empty(t, g.Precedents(formula))
	assert.Empty(t, g.Dependents(input))
	// Orphans stay.
	assert.True(t, g.Has(formula))
	assert.True(t, g.Has(input))
}

func TestDuplicateEdgeIdempotent(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)

	require.NoError(t, g.AddInput(formula, input, false))
	require.NoError(t, g.AddInput(formula, input, false))
	assert.Len(t, g.Precedents(formula), 1)
	assert.Len(t, g.Dependents(input), 1)
}

func TestSelfCycleRejected(t *testing.T) {
	g := New()
	node := cellAt(0, 0, 0)
	err := g.AddInput(node, node, false)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestCycleRejectedAndStateUnchanged(t *testing.T) {
	g := New()
	a1 := cellAt(0, 0, 0)
	b1 := cellAt(0, 0, 1)

	require.NoError(t, g.AddInput(a1, b1, false))
	before, err := g.ToJSON()
	require.NoError(t, err)

	addErr := g.AddInput(b1, a1, false)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, addErr, &cycleErr)

	after, err := g.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestTransitiveCycleRejected(t *testing.T) {
	g := New()
	a := cellAt(0, 0, 0)
	b := cellAt(0, 1, 0)
	c := cellAt(0, 2, 0)

	require.NoError(t, g.AddInput(a, b, false))
	require.NoError(t, g.AddInput(b, c, false))
	err := g.AddInput(c, a, false)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestRangeTooLarge(t *testing.T) {
	g := NewWithOptions(Options{MaxRangeCells: 4})
	formula := cellAt(0, 0, 0)
	large := rangeAt(0, 0, 0, 2, 2) // 9 cells

	err := g.AddInput(formula, large, false)
	var tooLarge *RangeTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, uint64(9), tooLarge.Cells)
	assert.False(t, g.Has(formula))
}

func TestMirrorInvariant(t *testing.T) {
	g := New()
	refs := []NodeRef{cellAt(0, 0, 0), cellAt(0, 1, 0), cellAt(0, 2, 0), rangeAt(0, 3, 0, 5, 1)}

	require.NoError(t, g.AddInput(refs[0], refs[1], false))
	require.NoError(t, g.AddInput(refs[0], refs[3], false))
	require.NoError(t, g.AddInput(refs[1], refs[2], false))
	g.RemoveInput(refs[0], refs[1])

	for _, a := range refs {
		for _, b := range g.Precedents(a) {
			found := false
			for _, d := range g.Dependents(b) {
				if d.Key() == a.Key() {
					found = true
				}
			}
			assert.True(t, found, "mirror of %s -> %s", a.Key(), b.Key())
		}
	}
}

func TestDirtyPropagationOrder(t *testing.T) {
	// A1 reads A2, A2 reads A3; marking A3 dirty must yield leaves-first
	// order [A3, A2, A1].
	g := New()
	a1 := cellAt(0, 0, 0)
	a2 := cellAt(0, 1, 0)
	a3 := cellAt(0, 2, 0)

	require.NoError(t, g.AddInput(a1, a2, true))
	require.NoError(t, g.AddInput(a2, a3, false))

	g.TakeDirty() // drop the add-time dirt
	assert.Empty(t, g.DirtyNodes())

	g.MarkDirty(a3)
	taken := g.TakeDirty()
	require.Len(t, taken, 3)
	assert.Equal(t, a3.Key(), taken[0].Key())
	assert.Equal(t, a2.Key(), taken[1].Key())
	assert.Equal(t, a1.Key(), taken[2].Key())

	assert.Empty(t, g.DirtyNodes())
}

func TestAddInputMarksFormulaDirty(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)

	require.NoError(t, g.AddInput(formula, input, true))
	dirty := g.DirtyNodes()
	require.Len(t, dirty, 1)
	assert.Equal(t, formula.Key(), dirty[0].Key())

	taken := g.TakeDirty()
	assert.Len(t, taken, 1)
	assert.Empty(t, g.DirtyNodes())
}

func TestHasArrayNode(t *testing.T) {
	g := New()
	formula := cellAt(0, 1, 0)
	input := rangeAt(0, 0, 0, 0, 2)
	require.NoError(t, g.AddInput(formula, input, false))

	assert.True(t, g.HasArrayNode(cellAt(0, 0, 1)))
	assert.False(t, g.HasArrayNode(cellAt(0, 1, 0)))
	assert.False(t, g.HasArrayNode(cellAt(1, 0, 1)), "other sheet")

	g.RemoveInput(formula, input)
	assert.False(t, g.HasArrayNode(cellAt(0, 0, 1)))
}

func TestRangeIndexManyRanges(t *testing.T) {
	g := New()
	for i := uint32(0); i < 50; i++ {
		formula := cellAt(0, 1000+i, 0)
		require.NoError(t, g.AddInput(formula, rangeAt(0, i*10, 0, i*10+5, 3), false))
	}
	assert.True(t, g.HasArrayNode(cellAt(0, 103, 2)))
	assert.False(t, g.HasArrayNode(cellAt(0, 107, 2)))
	assert.False(t, g.HasArrayNode(cellAt(0, 103, 9)))
}

func TestApplyOperationsAndDelete(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)

	require.NoError(t, g.ApplyOperations([]Operation{
		AddInputOp(formula, input, false),
	}))
	assert.True(t, g.Has(formula))

	require.NoError(t, g.ApplyOperations([]Operation{
		DeleteOp(formula, RemoveNode),
	}))
	assert.False(t, g.Has(formula))
	assert.Empty(t, g.Dependents(input))
}

func TestDeleteEdgesOnlyKeepsNode(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)
	require.NoError(t, g.AddInput(formula, input, false))

	g.Delete(formula, RemoveEdgesOnly)
	assert.True(t, g.Has(formula))
	assert.Empty(t, g.Precedents(formula))
	assert.Empty(t, g.Dependents(input))
}

func TestApplyOperationsRollsBackOnFailure(t *testing.T) {
	g := New()
	a := cellAt(0, 0, 0)
	b := cellAt(0, 0, 1)
	c := cellAt(0, 0, 2)

	err := g.ApplyOperations([]Operation{
		AddInputOp(a, b, false),
		AddInputOp(b, c, false),
		AddInputOp(c, a, false), // closes a cycle
	})
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)

	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Precedents(a))
}

func TestJSONRoundTrip(t *testing.T) {
	g := New()
	formula := cellAt(0, 0, 0)
	input := cellAt(0, 1, 0)
	staticRef := StaticNode("GLOBAL")
	rangeInput := rangeAt(0, 2, 0, 4, 1)

	require.NoError(t, g.AddInput(formula, input, false))
	require.NoError(t, g.AddInput(formula, staticRef, false))
	require.NoError(t, g.AddInput(formula, rangeInput, true))

	data, err := g.ToJSON()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.FromJSON(data))

	assert.True(t, restored.Has(formula))
	assert.True(t, restored.Has(input))
	assert.True(t, restored.Has(staticRef))
	assert.True(t, restored.Has(rangeInput))
	assert.Len(t, restored.Precedents(formula), 3)
	assert.True(t, restored.HasArrayNode(cellAt(0, 3, 1)))

	again, err := restored.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParseKeyRoundTrip(t *testing.T) {
	refs := []NodeRef{
		cellAt(3, 5, 7),
		rangeAt(0, 1, 2, 3, 4),
		StaticNode("TAX_RATE"),
	}
	for _, ref := range refs {
		back, err := ParseKey(ref.Key())
		require.NoError(t, err)
		assert.Equal(t, ref.Key(), back.Key())
	}

	_, err := ParseKey("x:1")
	assert.Error(t, err)
}
