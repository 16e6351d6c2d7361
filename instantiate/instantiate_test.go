package instantiate_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vertexdlt/wrcore/instantiate"
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

func testCtx() *runtimectx.Context {
	return runtimectx.NewContext(runtimectx.AllFeatures, runtimectx.DefaultConfig())
}

func literalI32(v int32) wasm.ConstExpr {
	return wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeI32, LiteralBits: uint64(uint32(v))}
}

func literalF64(v float64) wasm.ConstExpr {
	return wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeF64, LiteralBits: math.Float64bits(v)}
}

func TestInstantiateGlobalsCumulativeLayoutAndLiterals(t *testing.T) {
	m := &wasm.Module{
		GlobalIndexSpace: []*wasm.Global{
			{Type: wasm.GlobalType{ValueType: wasm.ValueTypeI32}, Init: literalI32(42)},
			{Type: wasm.GlobalType{ValueType: wasm.ValueTypeF64}, Init: literalF64(3.5)},
		},
	}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)

	g0, g1 := m.GlobalIndexSpace[0], m.GlobalIndexSpace[1]
	require.EqualValues(t, 0, g0.DataOffset)
	require.EqualValues(t, 4, g1.DataOffset) // i32 takes 4 bytes
	require.Len(t, inst.GlobalData, 12)       // 4 + 8

	require.EqualValues(t, 42, int32(binary.LittleEndian.Uint32(inst.GlobalData[0:4])))
	require.InDelta(t, 3.5, math.Float64frombits(binary.LittleEndian.Uint64(inst.GlobalData[4:12])), 0)
}

func TestInstantiateGlobalsBackwardReference(t *testing.T) {
	m := &wasm.Module{
		ImportedGlobalCount: 1,
		GlobalIndexSpace: []*wasm.Global{
			{Type: wasm.GlobalType{ValueType: wasm.ValueTypeI32}}, // imported, no initializer
			{Type: wasm.GlobalType{ValueType: wasm.ValueTypeI32}, Init: wasm.ConstExpr{Kind: wasm.ConstExprGlobalGet, GlobalIndex: 0}},
		},
	}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)
	// the imported global is zeroed (no host link in the CORE's scope);
	// the defined global copies from it, so both read as zero.
	require.EqualValues(t, 0, binary.LittleEndian.Uint32(inst.GlobalData[0:4]))
	require.EqualValues(t, 0, binary.LittleEndian.Uint32(inst.GlobalData[4:8]))
}

func TestInstantiateMemoryCollapsesWithoutMemoryGrow(t *testing.T) {
	mem := &wasm.Memory{Limits: wasm.Limits{Min: 3, HasMax: true, Max: 10}, BytesPerPage: wasm.DefaultBytesPerPage}
	m := &wasm.Module{MemoryIndexSpace: []*wasm.Memory{mem}, HasMemoryGrow: false}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)

	require.EqualValues(t, 1, mem.Limits.Min)
	require.EqualValues(t, 1, mem.Limits.Max)
	require.EqualValues(t, 3*wasm.DefaultBytesPerPage, mem.BytesPerPage)
	require.Len(t, inst.Memories[0].Data, 3*wasm.DefaultBytesPerPage)
}

func TestInstantiateMemoryLeftAloneWithMemoryGrow(t *testing.T) {
	mem := &wasm.Memory{Limits: wasm.Limits{Min: 2}, BytesPerPage: wasm.DefaultBytesPerPage}
	m := &wasm.Module{MemoryIndexSpace: []*wasm.Memory{mem}, HasMemoryGrow: true}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)

	require.EqualValues(t, 2, mem.Limits.Min)
	require.EqualValues(t, wasm.DefaultBytesPerPage, mem.BytesPerPage)
	require.Len(t, inst.Memories[0].Data, 2*wasm.DefaultBytesPerPage)
}

func TestInstantiateZeroPageMemoryStaysZeroSized(t *testing.T) {
	mem := &wasm.Memory{Limits: wasm.Limits{Min: 0}, BytesPerPage: wasm.DefaultBytesPerPage}
	m := &wasm.Module{MemoryIndexSpace: []*wasm.Memory{mem}, HasMemoryGrow: false}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)
	require.EqualValues(t, 0, mem.Limits.Min)
	require.Empty(t, inst.Memories[0].Data)
}

func TestInstantiateTableSlotsStartEmpty(t *testing.T) {
	tbl := &wasm.Table{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 4}}
	m := &wasm.Module{TableIndexSpace: []*wasm.Table{tbl}}

	inst, err := instantiate.Instantiate(m, testCtx())
	require.NoError(t, err)
	require.Len(t, inst.Tables[0].Elements, 4)
	for _, e := range inst.Tables[0].Elements {
		require.Equal(t, instantiate.NoFuncIndex, e)
	}
}

func TestInstantiateRecordsFirstErrorOnContext(t *testing.T) {
	m := &wasm.Module{
		GlobalIndexSpace: []*wasm.Global{
			// references itself: not a backward reference at index 0.
			{Type: wasm.GlobalType{ValueType: wasm.ValueTypeI32}, Init: wasm.ConstExpr{Kind: wasm.ConstExprGlobalGet, GlobalIndex: 0}},
		},
	}

	ctx := testCtx()
	_, err := instantiate.Instantiate(m, ctx)
	require.ErrorIs(t, err, instantiate.ErrForwardGlobalReference)
	require.True(t, ctx.Failed())
	require.ErrorIs(t, ctx.FirstError(), instantiate.ErrForwardGlobalReference)
}
