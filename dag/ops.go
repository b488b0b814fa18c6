package dag

import "fmt"

type OpKind int

const (
	OpAddInput OpKind = iota
	OpRemoveInput
	OpDelete
)

type DeleteMode int

const (
	// RemoveNode detaches all edges and deletes the node.
	RemoveNode DeleteMode = iota
	// RemoveEdgesOnly detaches all edges but keeps the node.
	RemoveEdgesOnly
)

// Operation is one entry of a batched mutation log.
type Operation struct {
	Kind      OpKind
	Formula   NodeRef
	Input     NodeRef
	MarkDirty bool
	Position  NodeRef
	Mode      DeleteMode
}

func AddInputOp(formula, input NodeRef, markDirty bool) Operation {
	return Operation{Kind: OpAddInput, Formula: formula, Input: input, MarkDirty: markDirty}
}

func RemoveInputOp(formula, input NodeRef) Operation {
	return Operation{Kind: OpRemoveInput, Formula: formula, Input: input}
}

func DeleteOp(position NodeRef, mode DeleteMode) Operation {
	return Operation{Kind: OpDelete, Position: position, Mode: mode}
}

// ApplyOperations applies ops in log order. Any failure aborts the whole
// batch and restores the graph to its state before the call.
func (g *Graph) ApplyOperations(ops []Operation) error {
	snap, err := g.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot graph: %w", err)
	}
	for _, op := range ops {
		if err := g.applyOperation(op); err != nil {
			g.restore(snap)
			return err
		}
	}
	return nil
}

func (g *Graph) applyOperation(op Operation) error {
	switch op.Kind {
	case OpAddInput:
		return g.AddInput(op.Formula, op.Input, op.MarkDirty)
	case OpRemoveInput:
		g.RemoveInput(op.Formula, op.Input)
		return nil
	case OpDelete:
		g.Delete(op.Position, op.Mode)
		return nil
	}
	return fmt.Errorf("unknown operation kind %d", op.Kind)
}

// Delete detaches ref's edges; with RemoveNode the node itself is removed.
// Unknown nodes are a no-op.
func (g *Graph) Delete(ref NodeRef, mode DeleteMode) {
	key := ref.Key()
	if _, ok := g.nodes[key]; !ok {
		return
	}
	g.detach(key)
	if mode == RemoveNode {
		delete(g.nodes, key)
	}
}
