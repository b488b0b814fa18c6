package boundary

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"tally/ast"
	"tally/cell"
	"tally/engine"
)

// bytecodeEnvelope is the wire form of a compiled formula.
type bytecodeEnvelope struct {
	S string    `msgpack:"s"`
	H uint64    `msgpack:"h"`
	D []depWire `msgpack:"d"`
	A []byte    `msgpack:"a"`
}

type depWire struct {
	K  string `msgpack:"k"` // "c" or "r"
	R  uint32 `msgpack:"r"`
	C  uint32 `msgpack:"c"`
	R2 uint32 `msgpack:"r2,omitempty"`
	C2 uint32 `msgpack:"c2,omitempty"`
}

// EncodeCompiled serializes a compiled formula into opaque bytes.
func EncodeCompiled(compiled *engine.CompiledFormula) ([]byte, error) {
	astBytes, err := ast.Marshal(compiled.AST)
	if err != nil {
		return nil, errors.Wrap(err, "encode ast")
	}
	env := bytecodeEnvelope{S: compiled.Source, H: compiled.Hash, A: astBytes}
	for _, dep := range compiled.Dependencies {
		if dep.Kind == cell.RefRange {
			r := dep.Range.Normalized()
			env.D = append(env.D, depWire{
				K: "r", R: r.Start.Row, C: r.Start.Col, R2: r.End.Row, C2: r.End.Col,
			})
			continue
		}
		env.D = append(env.D, depWire{K: "c", R: dep.Cell.Row, C: dep.Cell.Col})
	}
	return msgpack.Marshal(env)
}

// DecodeCompiled restores a compiled formula from its wire form.
func DecodeCompiled(data []byte) (*engine.CompiledFormula, error) {
	var env bytecodeEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode bytecode")
	}
	expr, err := ast.Unmarshal(env.A)
	if err != nil {
		return nil, errors.Wrap(err, "decode ast")
	}
	compiled := &engine.CompiledFormula{Source: env.S, AST: expr, Hash: env.H}
	for _, d := range env.D {
		if d.K == "r" {
			compiled.Dependencies = append(compiled.Dependencies, cell.RangeRef(cell.NewRange(
				cell.Address{Row: d.R, Col: d.C},
				cell.Address{Row: d.R2, Col: d.C2},
			)))
			continue
		}
		compiled.Dependencies = append(compiled.Dependencies,
			cell.CellRef(cell.Address{Row: d.R, Col: d.C}))
	}
	return compiled, nil
}
