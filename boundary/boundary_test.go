package boundary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"tally/cell"
	"tally/value"
)

func TestValueToonRoundTrip(t *testing.T) {
	values := []value.Value{
		value.Blank,
		value.Bool(true),
		value.Bool(false),
		value.Int(42),
		value.Num(3.5),
		value.Str("x"),
		value.Arr(value.Int(1), value.Str("a")),
		value.NewError(value.ErrDiv0),
	}
	for _, v := range values {
		back := ToValue(FromValue(v))
		assert.Equal(t, v.Type(), back.Type(), v.Inspect())
		assert.Equal(t, v.Inspect(), back.Inspect())
	}
}

func TestToonErrorShape(t *testing.T) {
	toon := FromValue(value.NewError(value.ErrDiv0))
	assert.Equal(t, TagError, toon.T)
	assert.Equal(t, "Div0", toon.Code)
	assert.Equal(t, "#DIV/0!", toon.Msg)

	back := ToValue(ToonError("Bogus", "?"))
	err, ok := back.(*value.Error)
	require.True(t, ok)
	assert.Equal(t, value.ErrValue, err.Kind)
}

func TestToonDateDurationObject(t *testing.T) {
	// The Unix epoch is serial 25569.
	v := ToValue(ToonValue{T: TagDate, V: int64(0)})
	f, ok := v.(*value.Float)
	require.True(t, ok)
	assert.InDelta(t, 25569.0, f.Value, 1e-9)

	v = ToValue(ToonValue{T: TagDuration, V: int64(60000)})
	n, ok := v.(*value.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(60000), n.Value)

	v = ToValue(ToonValue{T: TagObj, V: map[string]interface{}{"a": 1}})
	err, ok := v.(*value.Error)
	require.True(t, ok)
	assert.Equal(t, value.ErrValue, err.Kind)
}

func TestShouldUseSparse(t *testing.T) {
	assert.False(t, ShouldUseSparse(10, 10, 80)) // 80% density
	assert.False(t, ShouldUseSparse(0, 0, 0))
	assert.True(t, ShouldUseSparse(100, 100, 500))   // 5%
	assert.True(t, ShouldUseSparse(200, 200, 10000)) // 25% of 40k cells
	assert.True(t, ShouldUseSparse(10, 10, 10))      // 10%
}

func TestPayloadDenseGetCell(t *testing.T) {
	rows := [][]value.Value{
		{value.Blank, value.Int(1)},
		{value.Bool(true), value.Blank},
	}
	p := FromValues(cell.Address{}, cell.Address{Row: 1, Col: 1}, rows)
	require.True(t, p.IsDense())
	assert.Len(t, p.Values, 4)

	r, c := p.Dimensions()
	assert.Equal(t, uint32(2), r)
	assert.Equal(t, uint32(2), c)

	got, ok := p.GetCell(0, 1)
	require.True(t, ok)
	assert.Equal(t, TagInt, got.T)

	got, ok = p.GetCell(0, 0)
	require.True(t, ok)
	assert.Equal(t, TagNull, got.T)

	_, ok = p.GetCell(2, 2)
	assert.False(t, ok)
}

func TestPayloadSparseSelection(t *testing.T) {
	rows := make([][]value.Value, 10)
	for i := range rows {
		rows[i] = make([]value.Value, 10)
		for j := range rows[i] {
			rows[i][j] = value.Blank
		}
	}
	rows[3][4] = value.Int(7)

	p := FromValues(cell.Address{}, cell.Address{Row: 9, Col: 9}, rows)
	require.False(t, p.IsDense())
	require.Len(t, p.Items, 1)

	got, ok := p.GetCell(3, 4)
	require.True(t, ok)
	assert.Equal(t, TagInt, got.T)

	got, ok = p.GetCell(0, 0)
	require.True(t, ok)
	assert.Equal(t, TagNull, got.T)
}

func TestIsJSONAutodetect(t *testing.T) {
	assert.True(t, IsJSON([]byte(`  {"a":1}`)))
	assert.True(t, IsJSON([]byte("\n[1]")))
	assert.False(t, IsJSON([]byte{0x82, 0xa1}))
	assert.False(t, IsJSON(nil))
}

func compileFormulas(t *testing.T, formulas ...string) CompileResponse {
	t.Helper()
	req := CompileRequest{}
	for _, f := range formulas {
		req.Formulas = append(req.Formulas, FormulaText{Kind: "text", F: f})
	}
	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)

	out, err := CompileMany(reqBytes)
	require.NoError(t, err)

	var resp CompileResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	return resp
}

func TestCompileAndEvalJSON(t *testing.T) {
	// S8: compile =A1+B1, evaluate against dense A1:B1 = [1, 2].
	resp := compileFormulas(t, "=A1+B1")
	require.Len(t, resp.Compiled, 1)
	require.Empty(t, resp.Errors)
	require.NotEmpty(t, resp.Compiled[0].B)

	evalReq := EvalRequest{
		Compiled: resp.Compiled,
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{R: 0, C: 0}, E: ToonCellAddr{R: 0, C: 1}},
			Values: []ToonValue{ToonInt(1), ToonInt(2)},
		},
	}
	evalBytes, err := json.Marshal(evalReq)
	require.NoError(t, err)

	out, err := EvalMany(evalBytes)
	require.NoError(t, err)
	assert.True(t, IsJSON(out), "response mirrors request encoding")

	var evalResp EvalResponse
	require.NoError(t, json.Unmarshal(out, &evalResp))
	require.Len(t, evalResp.Results, 1)
	assert.Empty(t, evalResp.Errors)

	f, ok := numberOf(evalResp.Results[0].V)
	require.True(t, ok)
	assert.InDelta(t, 3.0, f, 1e-9)
}

func TestCompileErrorKeepsSlot(t *testing.T) {
	resp := compileFormulas(t, "=1+", "=2+3")
	require.Len(t, resp.Compiled, 2)
	assert.Empty(t, resp.Compiled[0].B)
	assert.NotEmpty(t, resp.Compiled[1].B)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, uint32(0), resp.Errors[0].Idx)
	assert.NotEmpty(t, resp.Errors[0].Msg)
}

func TestEvalErrorsReported(t *testing.T) {
	resp := compileFormulas(t, "=1/0")
	evalReq := EvalRequest{
		Compiled: resp.Compiled,
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{}},
			Values: []ToonValue{ToonNull()},
		},
	}
	evalBytes, err := json.Marshal(evalReq)
	require.NoError(t, err)

	out, err := EvalMany(evalBytes)
	require.NoError(t, err)

	var evalResp EvalResponse
	require.NoError(t, json.Unmarshal(out, &evalResp))
	require.Len(t, evalResp.Results, 1)
	assert.Equal(t, TagError, evalResp.Results[0].T)
	assert.Equal(t, "Div0", evalResp.Results[0].Code)
	require.Len(t, evalResp.Errors, 1)
	assert.Equal(t, "#DIV/0!", evalResp.Errors[0].Msg)
}

func TestEvalSparseSheet(t *testing.T) {
	resp := compileFormulas(t, "=SUM(A1:A3)")
	evalReq := EvalRequest{
		Compiled: resp.Compiled,
		Sheet: SheetPayload{
			Range: ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{R: 2, C: 0}},
			Items: []SparseCell{
				{R: 0, C: 0, V: ToonInt(1)},
				{R: 2, C: 0, V: ToonInt(5)},
			},
		},
	}
	evalBytes, err := json.Marshal(evalReq)
	require.NoError(t, err)

	out, err := EvalMany(evalBytes)
	require.NoError(t, err)

	var evalResp EvalResponse
	require.NoError(t, json.Unmarshal(out, &evalResp))
	require.Len(t, evalResp.Results, 1)
	f, ok := numberOf(evalResp.Results[0].V)
	require.True(t, ok)
	assert.InDelta(t, 6.0, f, 1e-9)
}

func TestMessagePackRoundTrip(t *testing.T) {
	req := CompileRequest{Formulas: []FormulaText{{Kind: "text", F: "=2*3"}}}
	reqBytes, err := msgpack.Marshal(&req)
	require.NoError(t, err)
	require.False(t, IsJSON(reqBytes))

	out, err := CompileMany(reqBytes)
	require.NoError(t, err)
	assert.False(t, IsJSON(out))

	var resp CompileResponse
	require.NoError(t, msgpack.Unmarshal(out, &resp))
	require.Len(t, resp.Compiled, 1)
	require.Empty(t, resp.Errors)

	evalReq := EvalRequest{
		Compiled: resp.Compiled,
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{}},
			Values: []ToonValue{ToonNull()},
		},
	}
	evalBytes, err := msgpack.Marshal(&evalReq)
	require.NoError(t, err)

	out, err = EvalMany(evalBytes)
	require.NoError(t, err)

	var evalResp EvalResponse
	require.NoError(t, msgpack.Unmarshal(out, &evalResp))
	require.Len(t, evalResp.Results, 1)
	f, ok := numberOf(evalResp.Results[0].V)
	require.True(t, ok)
	assert.InDelta(t, 6.0, f, 1e-9)
}

func TestApplyRangeDense(t *testing.T) {
	req := RangeUpdateRequest{
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{R: 0, C: 1}},
			Values: []ToonValue{ToonInt(1), ToonInt(2)},
		},
		Updates: []CellUpdate{
			{Addr: ToonCellAddr{R: 0, C: 1}, Value: ToonInt(9)},
		},
	}
	reqBytes, err := json.Marshal(&req)
	require.NoError(t, err)

	out, err := ApplyRange(reqBytes)
	require.NoError(t, err)

	var sheet SheetPayload
	require.NoError(t, json.Unmarshal(out, &sheet))
	got, ok := sheet.GetCell(0, 1)
	require.True(t, ok)
	f, _ := numberOf(got.V)
	assert.InDelta(t, 9.0, f, 1e-9)
}

func TestApplyRangeSparseCompacts(t *testing.T) {
	// S9: writing Null marks for removal; compaction happens on the last
	// update of the batch.
	req := RangeUpdateRequest{
		Sheet: SheetPayload{
			Range: ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{R: 0, C: 1}},
			Items: []SparseCell{{R: 0, C: 0, V: ToonInt(1)}},
		},
		Updates: []CellUpdate{
			{Addr: ToonCellAddr{R: 0, C: 0}, Value: ToonNull()},
			{Addr: ToonCellAddr{R: 0, C: 1}, Value: ToonInt(2)},
		},
	}
	reqBytes, err := json.Marshal(&req)
	require.NoError(t, err)

	out, err := ApplyRange(reqBytes)
	require.NoError(t, err)

	var sheet SheetPayload
	require.NoError(t, json.Unmarshal(out, &sheet))
	require.Len(t, sheet.Items, 1)
	assert.Equal(t, uint32(0), sheet.Items[0].R)
	assert.Equal(t, uint32(1), sheet.Items[0].C)
	f, _ := numberOf(sheet.Items[0].V.V)
	assert.InDelta(t, 2.0, f, 1e-9)
}

func TestApplyRangeOutOfRange(t *testing.T) {
	req := RangeUpdateRequest{
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{}},
			Values: []ToonValue{ToonNull()},
		},
		Updates: []CellUpdate{{Addr: ToonCellAddr{R: 5, C: 5}, Value: ToonInt(1)}},
	}
	reqBytes, err := json.Marshal(&req)
	require.NoError(t, err)

	_, err = ApplyRange(reqBytes)
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
}

func TestApplyRangeLengthMismatch(t *testing.T) {
	req := RangeUpdateRequest{
		Sheet: SheetPayload{
			Range:  ToonRange{S: ToonCellAddr{}, E: ToonCellAddr{R: 1, C: 1}},
			Values: []ToonValue{ToonNull()}, // should be 4
		},
		Updates: []CellUpdate{{Addr: ToonCellAddr{}, Value: ToonInt(1)}},
	}
	reqBytes, err := json.Marshal(&req)
	require.NoError(t, err)

	_, err = ApplyRange(reqBytes)
	var mismatch *LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestValidateFormula(t *testing.T) {
	good, err := json.Marshal(FormulaText{Kind: "text", F: "=1+2"})
	require.NoError(t, err)
	out, err := ValidateFormula(good)
	require.NoError(t, err)
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.True(t, resp.Valid)

	bad, err := json.Marshal(FormulaText{Kind: "text", F: "=1+"})
	require.NoError(t, err)
	out, err = ValidateFormula(bad)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Msg)
}

func TestDecodeGarbageIsEncodingError(t *testing.T) {
	_, err := CompileMany([]byte{0xc1, 0x00})
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestBytecodeRoundTrip(t *testing.T) {
	resp := compileFormulas(t, "=SUM(A1:A3)+B1")
	require.Len(t, resp.Compiled, 1)

	compiled, err := DecodeCompiled(resp.Compiled[0].B)
	require.NoError(t, err)
	assert.Equal(t, "=SUM(A1:A3)+B1", compiled.Source)
	require.Len(t, compiled.Dependencies, 2)
	assert.Equal(t, cell.RefRange, compiled.Dependencies[0].Kind)
	assert.Equal(t, cell.RefCell, compiled.Dependencies[1].Kind)
	assert.NotZero(t, compiled.Hash)
}
