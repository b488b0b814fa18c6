package boundary

import (
	"tally/engine"
	"tally/value"
)

// CompileMany compiles a batch of formulas. Per-formula failures leave an
// empty bytecode slot at the matching index and an entry in errors; the
// batch always completes.
func CompileMany(request []byte) ([]byte, error) {
	var req CompileRequest
	if err := decodeRequest(request, &req); err != nil {
		return nil, err
	}

	eng := engine.New()
	resp := CompileResponse{
		Compiled: make([]FormulaBytecode, 0, len(req.Formulas)),
		Errors:   []IndexedError{},
	}

	for idx, formula := range req.Formulas {
		compiled, err := eng.Compile(formula.F)
		if err != nil {
			resp.Compiled = append(resp.Compiled, FormulaBytecode{Kind: "bc", B: []byte{}})
			resp.Errors = append(resp.Errors, IndexedError{Idx: uint32(idx), Msg: err.Error()})
			continue
		}
		bytecode, err := EncodeCompiled(compiled)
		if err != nil {
			resp.Compiled = append(resp.Compiled, FormulaBytecode{Kind: "bc", B: []byte{}})
			resp.Errors = append(resp.Errors, IndexedError{Idx: uint32(idx), Msg: err.Error()})
			continue
		}
		resp.Compiled = append(resp.Compiled, FormulaBytecode{Kind: "bc", B: bytecode})
	}

	return encodeResponse(&resp, request)
}

// EvalMany evaluates a batch of compiled formulas against one sheet
// payload, in submission order.
func EvalMany(request []byte) ([]byte, error) {
	var req EvalRequest
	if err := decodeRequest(request, &req); err != nil {
		return nil, err
	}

	eng := engine.New()
	resolver := newPayloadResolver(&req.Sheet, req.Globals)
	resp := EvalResponse{
		Results: make([]ToonValue, 0, len(req.Compiled)),
		Errors:  []IndexedError{},
	}

	for idx, bytecode := range req.Compiled {
		compiled, err := DecodeCompiled(bytecode.B)
		if err != nil {
			resp.Results = append(resp.Results, ToonError("EVAL", err.Error()))
			resp.Errors = append(resp.Errors, IndexedError{Idx: uint32(idx), Msg: err.Error()})
			continue
		}
		result := eng.Evaluate(compiled, resolver)
		resp.Results = append(resp.Results, FromValue(result))
		if err, ok := result.(*value.Error); ok {
			resp.Errors = append(resp.Errors, IndexedError{Idx: uint32(idx), Msg: err.Kind.Label()})
		}
	}

	return encodeResponse(&resp, request)
}

// ApplyRange applies cell updates to a sheet payload and returns the
// updated payload. Sparse payloads drop Null entries only after the last
// update of the batch.
func ApplyRange(request []byte) ([]byte, error) {
	var req RangeUpdateRequest
	if err := decodeRequest(request, &req); err != nil {
		return nil, err
	}

	sheet := req.Sheet
	total := len(req.Updates)
	for idx, update := range req.Updates {
		compact := idx+1 == total
		if err := applyCellUpdate(&sheet, update, compact); err != nil {
			return nil, err
		}
	}

	return encodeResponse(&sheet, request)
}

func applyCellUpdate(sheet *SheetPayload, update CellUpdate, compact bool) error {
	row, col := update.Addr.R, update.Addr.C
	if !sheet.inRange(row, col) {
		return &OutOfRangeError{Row: row, Col: col}
	}

	if sheet.IsDense() {
		rows, cols := sheet.Dimensions()
		expected := int(rows) * int(cols)
		if len(sheet.Values) != expected {
			return &LengthMismatchError{Expected: expected, Actual: len(sheet.Values)}
		}
		index := int(row-sheet.Range.S.R)*int(cols) + int(col-sheet.Range.S.C)
		sheet.Values[index] = update.Value
		return nil
	}

	isNull := update.Value.T == TagNull || update.Value.T == ""
	found := false
	for i := range sheet.Items {
		if sheet.Items[i].R == row && sheet.Items[i].C == col {
			if isNull {
				// Mark for removal; compaction happens on the last update.
				sheet.Items[i].V = ToonNull()
			} else {
				sheet.Items[i].V = update.Value
			}
			found = true
			break
		}
	}
	if !found && !isNull {
		sheet.Items = append(sheet.Items, SparseCell{R: row, C: col, V: update.Value})
	}

	if compact {
		kept := sheet.Items[:0]
		for _, item := range sheet.Items {
			if item.V.T == TagNull || item.V.T == "" {
				continue
			}
			kept = append(kept, item)
		}
		sheet.Items = kept
	}
	return nil
}

// ValidateFormula checks a single formula's syntax, answering in the
// request's encoding.
func ValidateFormula(request []byte) ([]byte, error) {
	var formula FormulaText
	if err := decodeRequest(request, &formula); err != nil {
		return nil, err
	}

	eng := engine.New()
	resp := ValidateResponse{Valid: true, Msg: "formula is valid"}
	if _, err := eng.Compile(formula.F); err != nil {
		resp.Valid = false
		resp.Msg = err.Error()
	}
	return encodeResponse(&resp, request)
}
