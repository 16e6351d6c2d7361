// Package wasm holds the in-memory representation of a decoded WebAssembly
// module: the Module and its sections, function signatures, and the index
// spaces that tie imports and definitions together.
//
// This package is a pure data model. Decoding bytes into a Module is
// wasm/binary's job; type-checking a Module's function bodies and emitting
// branch tables is the validator package's job; allocating live memory,
// table, and global storage for a Module is the instantiate package's job.
package wasm

import "fmt"

// Magic is the four-byte '\0asm' preamble every Wasm module begins with.
const Magic uint32 = 0x6d736100

// Version is the only binary format version this package understands.
const Version uint32 = 0x1

// ValueType is a Wasm value type, or one of the two validator-only pseudo
// types ANY and VOID used to describe unreachable/empty stack slots.
type ValueType byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f

	// ValueTypeVoid represents the empty block type (0x40) and a function
	// signature's absence of a result.
	ValueTypeVoid ValueType = 0x00
	// ValueTypeAny is produced only by the validator, to represent the top
	// of stack inside an unreachable (polymorphic) region.
	ValueTypeAny ValueType = 0xff
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeVoid:
		return "void"
	case ValueTypeAny:
		return "any"
	default:
		return fmt.Sprintf("valuetype(0x%02x)", byte(v))
	}
}

// IsNumeric reports whether v is one of i32/i64/f32/f64/v128.
func (v ValueType) IsNumeric() bool {
	switch v {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128:
		return true
	default:
		return false
	}
}

// CellCount is the validator's unit of stack space for v: 32-bit types and
// reference types occupy a single cell, 64-bit types and v128 occupy two.
func (v ValueType) CellCount() int {
	switch v {
	case ValueTypeI64, ValueTypeF64, ValueTypeV128:
		return 2
	default:
		return 1
	}
}

// Is64 reports whether v is one of the 64-bit-cell numeric types, used by
// the validator's local/global fast-path opcode selection.
func (v ValueType) Is64() bool {
	return v == ValueTypeI64 || v == ValueTypeF64
}

// FunctionType is a function signature, unique by structure within a module.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

// Equal reports whether t and other describe the same parameter and result
// vectors.
func (t *FunctionType) Equal(other *FunctionType) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return valueTypesEqual(t.Params, other.Params) && valueTypesEqual(t.Results, other.Results)
}

func valueTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParamCells returns the total cell count of t's parameters.
func (t *FunctionType) ParamCells() int {
	n := 0
	for _, p := range t.Params {
		n += p.CellCount()
	}
	return n
}

// ResultCells returns the total cell count of t's results.
func (t *FunctionType) ResultCells() int {
	n := 0
	for _, r := range t.Results {
		n += r.CellCount()
	}
	return n
}

// Limits bounds the size of a table or memory.
// https://webassembly.github.io/spec/core/binary/types.html#limits
type Limits struct {
	Min uint32
	Max uint32 // valid only if HasMax is true
	HasMax bool
}

// Table describes a Wasm table: an array of opaque references (funcref or,
// with the reference-types feature, externref).
type Table struct {
	ElemType ValueType
	Limits   Limits
}

// Memory describes a Wasm linear memory, in units of 64KiB pages unless the
// instantiator has applied the single-page collapse optimization (spec.md
// §4.5), which rewrites BytesPerPage and Min/Max in place.
type Memory struct {
	Limits       Limits
	BytesPerPage uint32
}

// DefaultBytesPerPage is the standard Wasm page size.
const DefaultBytesPerPage = 64 * 1024

// Mutability of a Global.
type Mutability byte

const (
	Immutable Mutability = 0x00
	Mutable   Mutability = 0x01
)

// GlobalType is a global's declared value type and mutability.
type GlobalType struct {
	ValueType  ValueType
	Mutability Mutability
}

// ConstExprKind distinguishes the two forms of const-expr initializer the
// binary format allows: a literal value, or a reference to an earlier
// global (imported or defined).
type ConstExprKind byte

const (
	ConstExprLiteral ConstExprKind = iota
	ConstExprGlobalGet
)

// ConstExpr is a Wasm constant initializer expression, as it appears in a
// global, element, or data segment's offset/init field. The loader parses
// just enough of the expression to capture Kind/LiteralBits/GlobalIndex; full
// evaluation (including resolving a GlobalGet reference) is the
// instantiator's job.
type ConstExpr struct {
	Kind ConstExprKind

	// LiteralBits holds the raw bit pattern for i32.const/i64.const/f32.const/
	// f64.const, valid when Kind == ConstExprLiteral. LiteralType records
	// which of the four it was.
	LiteralBits uint64
	LiteralType ValueType

	// GlobalIndex is valid when Kind == ConstExprGlobalGet: the index, in the
	// global index space, of the earlier global to copy.
	GlobalIndex uint32
}

// Global is a module-level mutable or immutable storage cell.
type Global struct {
	Type GlobalType
	Init ConstExpr

	// DataOffset is assigned by the instantiator: the byte offset of this
	// global's storage within the module's global data blob.
	DataOffset uint32
}

const (
	ExternalKindFunc   byte = 0x00
	ExternalKindTable  byte = 0x01
	ExternalKindMemory byte = 0x02
	ExternalKindGlobal byte = 0x03
)

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   byte

	// Exactly one of the following is populated, selected by Kind.
	FuncTypeIndex uint32
	Table         *Table
	Memory        *Memory
	GlobalType    *GlobalType
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// LocalGroup is a run of Count locals sharing ValueType, as the binary
// format encodes them.
type LocalGroup struct {
	Count     uint32
	ValueType ValueType
}

// Function is a module-defined function: its signature, declared locals, and
// raw opcode body. The last three fields are populated by the validator and
// are zero/nil until Validate succeeds.
type Function struct {
	Index     uint32
	TypeIndex uint32
	Type      *FunctionType

	// LocalTypes is Params followed by the expansion of the code section's
	// local groups; LocalOffsets is the cell-indexed starting offset of each
	// entry in LocalTypes (so 64-bit locals consume two slots).
	LocalTypes   []ValueType
	LocalOffsets []uint32

	// Body is the function's opcode stream, a sub-slice of the original
	// input buffer passed to wasm/binary.Decode. The validator rewrites
	// selected opcodes in place (spec.md §4.4); callers must not share this
	// buffer with another reader until validation returns successfully.
	Body []byte

	// Populated by validator.Validate:
	MaxStackCellNum uint32
	MaxBlockNum     uint32
	BranchTable     []BranchTableEntry
}

// TotalLocalCells returns the cell-indexed size of the function's local
// storage (parameters plus declared locals).
func (f *Function) TotalLocalCells() int {
	n := 0
	for _, t := range f.LocalTypes {
		n += t.CellCount()
	}
	return n
}

// LabelKind distinguishes the four control-frame shapes the validator's
// control stack tracks.
type LabelKind byte

const (
	LabelFunction LabelKind = iota
	LabelBlock
	LabelLoop
	LabelIf
)

// BranchTableEntry records, for one branching opcode site, its eventual
// resolved jump target and the stack adjustment required at jump time.
// Before the enclosing block is popped during validation, only SourceOp,
// PopCount and PushCount are populated (TargetIP is -1); TargetIP and
// TargetEntryIndex are back-patched at block end (spec.md §3, "Branch Table
// Entry").
type BranchTableEntry struct {
	// SourceOp is the opcode that created this entry (br/br_if/br_table/
	// return/if/else), kept distinct from TargetEntryIndex per spec.md §9's
	// note that the original source incorrectly reused a single field for
	// both.
	SourceOp byte

	// TargetIP is the resolved instruction pointer within the owning
	// function's Body: start_addr for a LOOP target, end_addr otherwise,
	// except that an IF entry targets else_addr when its block has an else.
	TargetIP int

	// TargetEntryIndex is the branch-table index at which the target block
	// ends, letting an execution engine locate sibling entries.
	TargetEntryIndex int

	// PopCount/PushCount are the stack cell adjustments to apply at jump
	// time: pop = current_cells - target.stack_height, push =
	// target_label_cells.
	PopCount  int
	PushCount int
}

// Element is one entry of the element section: funcref indices destined for
// a table, under a constant offset expression.
type Element struct {
	TableIndex uint32
	Offset     ConstExpr
	FuncIndices []uint32
}

// Data is one entry of the data section: a byte payload destined for linear
// memory, under a constant offset expression.
type Data struct {
	MemoryIndex uint32
	Offset      ConstExpr
	Init        []byte
}

// Module is the fully-loaded, section-populated representation of one Wasm
// binary. It is built up section-by-section by wasm/binary.Decode, mutated
// in place (opcode rewrites, branch table population) by validator.Validate,
// and frozen thereafter. A Module that fails to load or validate must not
// escape to a caller (spec.md §3, "Lifecycle").
type Module struct {
	Version uint32

	Types   []*FunctionType
	Imports []Import
	Exports map[string]Export

	// FunctionIndexSpace holds every function, imported first: indices
	// [0, ImportedFuncCount) are imports (TypeIndex/Type only, no Body), and
	// [ImportedFuncCount, len) are module-defined (spec.md §3, "Invariant").
	FunctionIndexSpace []*Function
	ImportedFuncCount  uint32

	TableIndexSpace   []*Table
	ImportedTableCount uint32

	MemoryIndexSpace   []*Memory
	ImportedMemoryCount uint32

	GlobalIndexSpace   []*Global
	ImportedGlobalCount uint32

	StartFuncIndex  uint32
	HasStartFunc    bool

	Elements []Element
	DataSegments []Data

	// DataCount is set when the (optional) data-count section is present;
	// HasDataCount gates validation of memory.init/data.drop.
	DataCount    uint32
	HasDataCount bool

	// HasMemoryGrow is set by the validator when any function body contains
	// a memory.grow opcode. The instantiator's single-page collapse
	// optimization (spec.md §4.5) only applies when this is false.
	HasMemoryGrow bool
}

// GetFunction returns the function at index i in the function index space,
// or nil if i is out of range.
func (m *Module) GetFunction(i int) *Function {
	if i < 0 || i >= len(m.FunctionIndexSpace) {
		return nil
	}
	return m.FunctionIndexSpace[i]
}

// IsImportedFunc reports whether function index i refers to an import
// rather than a module-defined function.
func (m *Module) IsImportedFunc(i uint32) bool {
	return i < m.ImportedFuncCount
}

// GetGlobal returns the global at index i, or nil if i is out of range.
func (m *Module) GetGlobal(i int) *Global {
	if i < 0 || i >= len(m.GlobalIndexSpace) {
		return nil
	}
	return m.GlobalIndexSpace[i]
}

// GetTable returns the table at index i, or nil if i is out of range.
func (m *Module) GetTable(i int) *Table {
	if i < 0 || i >= len(m.TableIndexSpace) {
		return nil
	}
	return m.TableIndexSpace[i]
}

// GetMemory returns the memory at index i, or nil if i is out of range.
func (m *Module) GetMemory(i int) *Memory {
	if i < 0 || i >= len(m.MemoryIndexSpace) {
		return nil
	}
	return m.MemoryIndexSpace[i]
}

// GetType returns the function type at index i, or nil if i is out of
// range.
func (m *Module) GetType(i uint32) *FunctionType {
	if int(i) >= len(m.Types) {
		return nil
	}
	return m.Types[i]
}
