package instantiate

import (
	"encoding/binary"

	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

// Instantiate implements spec.md §4.5 over an already-validated module: it
// lays out and evaluates global storage, applies the memory.grow-free
// single-page collapse optimization to every memory, and allocates table
// storage with every slot set to NoFuncIndex. m must have already passed validator.Validate
// for every function in its index space — Instantiate does not re-check
// opcodes, only the module-level descriptors validation leaves behind. The
// first error encountered, if any, is also recorded on ctx via ctx.Fail.
func Instantiate(m *wasm.Module, ctx *runtimectx.Context) (inst *Instance, err error) {
	defer func() {
		if err != nil {
			ctx.Fail(err)
		}
	}()

	globalData, err := instantiateGlobals(m)
	if err != nil {
		return nil, err
	}

	memories := make([]*MemoryInstance, len(m.MemoryIndexSpace))
	for i, mem := range m.MemoryIndexSpace {
		memories[i] = instantiateMemory(mem, m.HasMemoryGrow)
	}

	tables := make([]*TableInstance, len(m.TableIndexSpace))
	for i, tbl := range m.TableIndexSpace {
		tables[i] = &TableInstance{
			Descriptor: tbl,
			Elements:   newTableStorage(tbl.Limits.Min),
		}
	}

	return &Instance{
		Module:     m,
		GlobalData: globalData,
		Memories:   memories,
		Tables:     tables,
	}, nil
}

func newTableStorage(n uint32) []int32 {
	elems := make([]int32, n)
	for i := range elems {
		elems[i] = NoFuncIndex
	}
	return elems
}

// instantiateGlobals assigns each global's DataOffset cumulatively by byte
// size, allocates one contiguous blob, and evaluates every defined global's
// initializer into its slot (wasm_globals_instantiate.c's layout algorithm).
// Imported globals reserve a slot but are left zeroed — the value a host
// would supply at link time is outside the CORE's scope (spec.md §1).
func instantiateGlobals(m *wasm.Module) ([]byte, error) {
	offset := uint32(0)
	for _, g := range m.GlobalIndexSpace {
		g.DataOffset = offset
		offset += globalByteSize(g.Type.ValueType)
	}
	blob := make([]byte, offset)

	for i := range m.GlobalIndexSpace[m.ImportedGlobalCount:] {
		idx := int(m.ImportedGlobalCount) + i
		if err := evalGlobalInit(m, blob, idx); err != nil {
			return nil, err
		}
	}
	return blob, nil
}

func evalGlobalInit(m *wasm.Module, blob []byte, idx int) error {
	g := m.GlobalIndexSpace[idx]
	size := globalByteSize(g.Type.ValueType)
	slot := blob[g.DataOffset : g.DataOffset+size]

	switch g.Init.Kind {
	case wasm.ConstExprLiteral:
		putBits(slot, g.Init.LiteralBits, size)
		return nil
	case wasm.ConstExprGlobalGet:
		// Only a backward reference is legal; wasm/binary's decoder already
		// enforces this at read time by bounding GlobalIndex against the
		// globals seen so far, so this is a defensive re-check.
		if int(g.Init.GlobalIndex) >= idx {
			return ErrForwardGlobalReference
		}
		src := m.GlobalIndexSpace[g.Init.GlobalIndex]
		srcSize := globalByteSize(src.Type.ValueType)
		copy(slot, blob[src.DataOffset:src.DataOffset+srcSize])
		return nil
	default:
		return ErrUnknownConstExprKind
	}
}

func globalByteSize(t wasm.ValueType) uint32 {
	return uint32(t.CellCount()) * 4
}

func putBits(slot []byte, bits uint64, size uint32) {
	if size == 8 {
		binary.LittleEndian.PutUint64(slot, bits)
		return
	}
	binary.LittleEndian.PutUint32(slot, uint32(bits))
}

// instantiateMemory applies spec.md §4.5's single-page collapse
// optimization: when no function body in the module contains memory.grow,
// a memory's page size is inflated to its entire current extent and its
// page count pinned to exactly one, making its base pointer a compile-time
// constant for a JIT backend. A zero-page memory is left zero-sized.
func instantiateMemory(mem *wasm.Memory, hasMemoryGrow bool) *MemoryInstance {
	if !hasMemoryGrow && mem.Limits.Min > 0 {
		mem.BytesPerPage *= mem.Limits.Min
		mem.Limits.Min = 1
		mem.Limits.Max = 1
		mem.Limits.HasMax = true
	}
	size := uint64(mem.Limits.Min) * uint64(mem.BytesPerPage)
	return &MemoryInstance{Descriptor: mem, Data: make([]byte, size)}
}
