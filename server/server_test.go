package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/boundary"
)

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestBatchEndpoints(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp := postJSON(t, ts, "/compile", boundary.CompileRequest{
		Formulas: []boundary.FormulaText{{Kind: "text", F: "=1+2"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var compiled boundary.CompileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&compiled))
	require.Len(t, compiled.Compiled, 1)
	assert.Empty(t, compiled.Errors)

	evalResp := postJSON(t, ts, "/eval", boundary.EvalRequest{
		Compiled: compiled.Compiled,
		Sheet: boundary.SheetPayload{
			Range:  boundary.ToonRange{S: boundary.ToonCellAddr{}, E: boundary.ToonCellAddr{}},
			Values: []boundary.ToonValue{boundary.ToonNull()},
		},
	})
	defer evalResp.Body.Close()
	assert.Equal(t, http.StatusOK, evalResp.StatusCode)

	var results boundary.EvalResponse
	require.NoError(t, json.NewDecoder(evalResp.Body).Decode(&results))
	require.Len(t, results.Results, 1)
}

func TestValidateEndpoint(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp := postJSON(t, ts, "/validate", boundary.FormulaText{Kind: "text", F: "=SUM("})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out boundary.ValidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Valid)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/compile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBadPayloadIsBadRequest(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/eval", "application/msgpack", bytes.NewReader([]byte{0xc1}))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
