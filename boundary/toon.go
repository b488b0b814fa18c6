package boundary

import (
	"tally/value"
)

// Toon type tags. The schema is shared by the JSON and MessagePack
// encodings; only the container format differs.
const (
	TagNull     = "null"
	TagBool     = "bool"
	TagInt      = "int"
	TagFloat    = "float"
	TagStr      = "str"
	TagArr      = "arr"
	TagObj      = "obj"
	TagDate     = "date"
	TagDuration = "duration"
	TagError    = "error"
)

// ToonValue is the tagged interchange value crossing the boundary.
// V holds the payload for scalar and array tags; errors use Code/Msg.
type ToonValue struct {
	T    string      `json:"t" msgpack:"t"`
	V    interface{} `json:"v,omitempty" msgpack:"v,omitempty"`
	Code string      `json:"code,omitempty" msgpack:"code,omitempty"`
	Msg  string      `json:"msg,omitempty" msgpack:"msg,omitempty"`
}

func ToonNull() ToonValue            { return ToonValue{T: TagNull} }
func ToonInt(v int64) ToonValue      { return ToonValue{T: TagInt, V: v} }
func ToonFloat(v float64) ToonValue  { return ToonValue{T: TagFloat, V: v} }
func ToonStr(v string) ToonValue     { return ToonValue{T: TagStr, V: v} }
func ToonArr(v []ToonValue) ToonValue { return ToonValue{T: TagArr, V: v} }

func ToonBool(v bool) ToonValue {
	n := int64(0)
	if v {
		n = 1
	}
	return ToonValue{T: TagBool, V: n}
}

func ToonError(code, msg string) ToonValue {
	return ToonValue{T: TagError, Code: code, Msg: msg}
}

// FromValue maps an engine value to its boundary form.
func FromValue(v value.Value) ToonValue {
	switch x := v.(type) {
	case *value.Empty:
		return ToonNull()
	case *value.Boolean:
		return ToonBool(x.Value)
	case *value.Integer:
		return ToonInt(x.Value)
	case *value.Float:
		return ToonFloat(x.Value)
	case *value.String:
		return ToonStr(x.Value)
	case *value.Array:
		items := make([]ToonValue, len(x.Elements))
		for i, el := range x.Elements {
			items[i] = FromValue(el)
		}
		return ToonArr(items)
	case *value.Error:
		return ToonError(x.Kind.Code(), x.Kind.Label())
	}
	return ToonError("Value", value.ErrValue.Label())
}

// ToValue maps a boundary value back into the engine taxonomy. Dates
// become serial-date floats, durations millisecond ints, and objects are
// not first-class cell values.
func ToValue(t ToonValue) value.Value {
	switch t.T {
	case TagNull, "":
		return value.Blank
	case TagBool:
		f, _ := numberOf(t.V)
		return value.Bool(f != 0)
	case TagInt:
		f, ok := numberOf(t.V)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Int(int64(f))
	case TagFloat:
		f, ok := numberOf(t.V)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Num(f)
	case TagStr:
		s, ok := t.V.(string)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Str(s)
	case TagArr:
		items := t.Items()
		out := make([]value.Value, len(items))
		for i, item := range items {
			out[i] = ToValue(item)
		}
		return &value.Array{Elements: out}
	case TagDate:
		ms, ok := numberOf(t.V)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Num(ms/86_400_000.0 + 25569.0)
	case TagDuration:
		ms, ok := numberOf(t.V)
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Int(int64(ms))
	case TagError:
		return value.NewError(value.KindFromCode(t.Code))
	case TagObj:
		return value.NewError(value.ErrValue)
	}
	return value.NewError(value.ErrValue)
}

// Items views an array value's payload, tolerating the loosely-typed
// forms produced by decoding.
func (t ToonValue) Items() []ToonValue {
	switch items := t.V.(type) {
	case []ToonValue:
		return items
	case []interface{}:
		out := make([]ToonValue, len(items))
		for i, item := range items {
			out[i] = fromDecoded(item)
		}
		return out
	}
	return nil
}

// fromDecoded rebuilds a ToonValue from the generic containers a codec
// produces for nested payloads.
func fromDecoded(x interface{}) ToonValue {
	switch m := x.(type) {
	case ToonValue:
		return m
	case map[string]interface{}:
		out := ToonValue{}
		if t, ok := m["t"].(string); ok {
			out.T = t
		}
		out.V = m["v"]
		if c, ok := m["code"].(string); ok {
			out.Code = c
		}
		if s, ok := m["msg"].(string); ok {
			out.Msg = s
		}
		return out
	}
	return ToonValue{T: TagNull}
}

func numberOf(x interface{}) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	}
	return 0, false
}
