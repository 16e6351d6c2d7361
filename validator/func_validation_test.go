package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

func i32() wasm.ValueType { return wasm.ValueTypeI32 }

func testCtx(features runtimectx.Features) *runtimectx.Context {
	return runtimectx.NewContext(features, runtimectx.DefaultConfig())
}

func newModule(types ...*wasm.FunctionType) *wasm.Module {
	return &wasm.Module{Types: types}
}

func newFunction(ft *wasm.FunctionType, locals []wasm.ValueType, body []byte) *wasm.Function {
	offsets := make([]uint32, len(locals))
	off := uint32(0)
	for i, t := range locals {
		offsets[i] = off
		off += uint32(t.CellCount())
	}
	return &wasm.Function{
		Type:         ft,
		LocalTypes:   locals,
		LocalOffsets: offsets,
		Body:         body,
	}
}

func TestValidateAddFunction(t *testing.T) {
	ft := &wasm.FunctionType{Params: []wasm.ValueType{i32(), i32()}, Results: []wasm.ValueType{i32()}}
	module := newModule(ft)
	body := []byte{
		byte(wasm.OpLocalGet), 0x00,
		byte(wasm.OpLocalGet), 0x01,
		0x6a, // i32.add
		byte(wasm.OpEnd),
	}
	fn := newFunction(ft, []wasm.ValueType{i32(), i32()}, body)

	err := Validate(fn, module, testCtx(0))
	require.NoError(t, err)
	require.Empty(t, fn.BranchTable)
	require.EqualValues(t, 2, fn.MaxStackCellNum)

	require.Equal(t, byte(wasm.OpLocalGetFast), fn.Body[0])
	require.Equal(t, byte(0x00), fn.Body[1])
	require.Equal(t, byte(wasm.OpLocalGetFast), fn.Body[2])
	require.Equal(t, byte(0x01), fn.Body[3])
}

func TestValidateForwardBranchPatched(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{i32()}}
	module := newModule(ft)
	body := []byte{
		byte(wasm.OpBlock), 0x7f, // block (result i32)
		byte(wasm.OpI32Const), 0x07,
		byte(wasm.OpBr), 0x00,
		byte(wasm.OpI32Const), 0x08, // unreachable, after the br
		byte(wasm.OpEnd), // block's own end, at index 8
		byte(wasm.OpEnd), // function end
	}
	fn := newFunction(ft, nil, body)

	err := Validate(fn, module, testCtx(0))
	require.NoError(t, err)
	require.Len(t, fn.BranchTable, 1)
	entry := fn.BranchTable[0]
	require.Equal(t, byte(wasm.OpBr), entry.SourceOp)
	require.Equal(t, 8, entry.TargetIP)
	require.Equal(t, 1, entry.PopCount)
	require.Equal(t, 1, entry.PushCount)
}

func TestValidateTypeMismatch(t *testing.T) {
	ft := &wasm.FunctionType{}
	module := newModule(ft)
	body := []byte{
		byte(wasm.OpI32Const), 0x01,
		0x7c, // i64.add
		byte(wasm.OpEnd),
	}
	fn := newFunction(ft, nil, body)

	err := Validate(fn, module, testCtx(0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "type mismatch")
}

func TestValidateMissingElse(t *testing.T) {
	ft := &wasm.FunctionType{}
	module := newModule(ft)
	body := []byte{
		byte(wasm.OpI32Const), 0x01, // condition
		byte(wasm.OpIf), 0x7f, // if (result i32), no else
		byte(wasm.OpI32Const), 0x07,
		byte(wasm.OpEnd),
		byte(wasm.OpEnd),
	}
	fn := newFunction(ft, nil, body)

	err := Validate(fn, module, testCtx(0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "type mismatch: else branch missing")
}

func TestValidateLoopBrTarget(t *testing.T) {
	ft := &wasm.FunctionType{Params: []wasm.ValueType{i32()}, Results: []wasm.ValueType{i32()}}
	module := newModule(ft)
	body := []byte{
		byte(wasm.OpI32Const), 0x00, // the loop's i32 param
		byte(wasm.OpLoop), 0x00, // loop, type index 0 == ft itself
		byte(wasm.OpLocalGet), 0x00,
		byte(wasm.OpBr), 0x00,
		byte(wasm.OpEnd), // loop end
		byte(wasm.OpEnd), // function end
	}
	fn := newFunction(ft, []wasm.ValueType{i32()}, body)

	err := Validate(fn, module, testCtx(0))
	require.NoError(t, err)
	require.Len(t, fn.BranchTable, 1)
	entry := fn.BranchTable[0]
	require.Equal(t, 4, entry.TargetIP) // loop's StartAddr: right after its type byte
	require.Equal(t, 1, entry.PopCount)
	require.Equal(t, 1, entry.PushCount)
}

func TestValidateMaxStackCellsExceeded(t *testing.T) {
	ft := &wasm.FunctionType{}
	module := newModule(ft)
	body := make([]byte, 0, maxStackCells*2+4)
	for i := 0; i < maxStackCells+1; i++ {
		body = append(body, byte(wasm.OpI32Const), 0x01)
	}
	for i := 0; i < maxStackCells+1; i++ {
		body = append(body, byte(wasm.OpDrop))
	}
	body = append(body, byte(wasm.OpEnd))
	fn := newFunction(ft, nil, body)

	err := Validate(fn, module, testCtx(0))
	require.Error(t, err)
}

func TestValidateTailCallRequiresFeature(t *testing.T) {
	callee := &wasm.FunctionType{Results: []wasm.ValueType{i32()}}
	ft := &wasm.FunctionType{Results: []wasm.ValueType{i32()}}
	module := newModule(ft, callee)
	module.FunctionIndexSpace = []*wasm.Function{{Type: callee}}
	body := []byte{
		byte(wasm.OpReturnCall), 0x00,
		byte(wasm.OpEnd),
	}
	fn := newFunction(ft, nil, body)

	err := Validate(fn, module, testCtx(0))
	require.Error(t, err)

	fn2 := newFunction(ft, nil, append([]byte(nil), body...))
	err = Validate(fn2, module, testCtx(runtimectx.FeatureTailCall))
	require.NoError(t, err)
}
