//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"tally/boundary"
)

func main() {
	c := make(chan struct{})
	js.Global().Set("tallyCompile", batchFunc(boundary.CompileMany))
	js.Global().Set("tallyEval", batchFunc(boundary.EvalMany))
	js.Global().Set("tallyApplyRange", batchFunc(boundary.ApplyRange))
	js.Global().Set("tallyValidate", batchFunc(boundary.ValidateFormula))
	fmt.Println("tally WASM runtime initialized.")
	<-c
}

// batchFunc adapts a bytes-to-bytes boundary op to a JS function taking
// and returning Uint8Array. Failures return {error: string}.
func batchFunc(fn func([]byte) ([]byte, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != 1 {
			return errorObject("expected 1 argument (request bytes)")
		}
		input := make([]byte, args[0].Get("length").Int())
		js.CopyBytesToGo(input, args[0])

		out, err := fn(input)
		if err != nil {
			return errorObject(err.Error())
		}

		result := js.Global().Get("Uint8Array").New(len(out))
		js.CopyBytesToJS(result, out)
		return result
	})
}

func errorObject(msg string) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("error", msg)
	return obj
}
