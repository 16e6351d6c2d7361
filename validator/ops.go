package validator

import (
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

func (v *validator) readValueTypeImm() (wasm.ValueType, error) {
	b, err := v.readByte()
	if err != nil {
		return 0, err
	}
	vt := wasm.ValueType(b)
	switch vt {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeFuncref, wasm.ValueTypeExternref, wasm.ValueTypeV128:
		return vt, nil
	default:
		return 0, v.fail("invalid value type")
	}
}

// applyCallSignature pops ft's params (in reverse) and pushes its results,
// shared by call and call_indirect.
func (v *validator) applyCallSignature(ft *wasm.FunctionType) error {
	for i := len(ft.Params) - 1; i >= 0; i-- {
		if err := v.pop(ft.Params[i]); err != nil {
			return err
		}
	}
	return v.pushCells(ft.Results...)
}

// stepTailCall implements return_call/return_call_indirect (spec.md §4.4,
// "Tail-call variants"): the callee's result types must equal the caller's;
// the caller's stack is then reset and marked polymorphic rather than
// pushing a result, since control never returns to this frame.
func (v *validator) stepTailCall(op wasm.Opcode) error {
	if err := v.features.Require(runtimectx.FeatureTailCall); err != nil {
		return v.fail("%s", err)
	}

	var ft *wasm.FunctionType
	if op == wasm.OpReturnCall {
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		callee := v.module.GetFunction(int(idx))
		if callee == nil {
			return v.failSentinel(ErrUnknownFunction, "unknown function")
		}
		ft = callee.Type
	} else {
		typeIdx, err := v.readULEB32()
		if err != nil {
			return err
		}
		tableIdx, err := v.readULEB32()
		if err != nil {
			return err
		}
		if tableIdx != 0 {
			return v.failSentinel(ErrZeroByteExpected, "zero byte expected")
		}
		ft = v.module.GetType(typeIdx)
		if ft == nil {
			return v.failSentinel(ErrUnknownType, "unknown type")
		}
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
	}

	if !sameTypes(ft.Results, v.fn.Type.Results) {
		return v.fail("type mismatch: tail call result type must equal caller's")
	}
	for i := len(ft.Params) - 1; i >= 0; i-- {
		if err := v.pop(ft.Params[i]); err != nil {
			return err
		}
	}
	v.truncateTo(v.topFrame().EntryHeight)
	v.topFrame().IsPolymorphic = true
	return nil
}
