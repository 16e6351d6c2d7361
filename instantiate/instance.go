// Package instantiate implements spec.md §4.5: allocating the live storage a
// validated module's globals, memories, and tables need before an execution
// engine can run any of its functions. It never runs Wasm code itself —
// constant initializer expressions are the only "evaluation" that happens
// here, and element/data segments are staged, not copied (that remains the
// execution engine's job on module start).
package instantiate

import "github.com/vertexdlt/wrcore/wasm"

// Instance is one module's allocated runtime storage, produced by
// Instantiate from an already-validated *wasm.Module.
type Instance struct {
	Module *wasm.Module

	// GlobalData is one contiguous blob holding every global's storage
	// (imported and defined), laid out by the cumulative byte offsets
	// recorded on each wasm.Global.DataOffset.
	GlobalData []byte

	// Memories/Tables mirror the module's index spaces one-for-one.
	Memories []*MemoryInstance
	Tables   []*TableInstance
}

// MemoryInstance is one linear memory's backing storage, sized after the
// instantiator's single-page collapse optimization (spec.md §4.5) has been
// applied to its descriptor.
type MemoryInstance struct {
	Descriptor *wasm.Memory
	Data       []byte
}

// TableInstance is one table's backing storage. Every slot starts at
// NoFuncIndex; element segments are applied later by the execution engine.
type TableInstance struct {
	Descriptor *wasm.Table
	Elements   []int32
}

// NoFuncIndex marks an empty table slot, distinguishing it from a
// legitimate reference to function index 0.
const NoFuncIndex int32 = -1
