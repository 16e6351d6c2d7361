package wasm

// Opcode is a single Wasm instruction byte. Multi-byte instructions (the
// 0xfc bulk-memory/saturating-truncation prefix) are represented as their
// first byte here; the validator reads the trailing LEB128 sub-opcode
// itself.
type Opcode byte

const (
	OpUnreachable Opcode = 0x00
	OpNop         Opcode = 0x01
	OpBlock       Opcode = 0x02
	OpLoop        Opcode = 0x03
	OpIf          Opcode = 0x04
	OpElse        Opcode = 0x05
	OpEnd         Opcode = 0x0b
	OpBr          Opcode = 0x0c
	OpBrIf        Opcode = 0x0d
	OpBrTable     Opcode = 0x0e
	OpReturn      Opcode = 0x0f
	OpCall        Opcode = 0x10
	OpCallIndirect Opcode = 0x11
	OpReturnCall  Opcode = 0x12 // tail call, gated on FeatureTailCall
	OpReturnCallIndirect Opcode = 0x13

	OpDrop   Opcode = 0x1a
	OpSelect Opcode = 0x1b
	OpSelectT Opcode = 0x1c // select t*, reference-types feature

	OpLocalGet  Opcode = 0x20
	OpLocalSet  Opcode = 0x21
	OpLocalTee  Opcode = 0x22
	OpGlobalGet Opcode = 0x23
	OpGlobalSet Opcode = 0x24

	OpTableGet Opcode = 0x25
	OpTableSet Opcode = 0x26

	OpI32Load    Opcode = 0x28
	OpI64Load    Opcode = 0x29
	OpF32Load    Opcode = 0x2a
	OpF64Load    Opcode = 0x2b
	OpI32Load8S  Opcode = 0x2c
	OpI32Load8U  Opcode = 0x2d
	OpI32Load16S Opcode = 0x2e
	OpI32Load16U Opcode = 0x2f
	OpI64Load8S  Opcode = 0x30
	OpI64Load8U  Opcode = 0x31
	OpI64Load16S Opcode = 0x32
	OpI64Load16U Opcode = 0x33
	OpI64Load32S Opcode = 0x34
	OpI64Load32U Opcode = 0x35
	OpI32Store   Opcode = 0x36
	OpI64Store   Opcode = 0x37
	OpF32Store   Opcode = 0x38
	OpF64Store   Opcode = 0x39
	OpI32Store8  Opcode = 0x3a
	OpI32Store16 Opcode = 0x3b
	OpI64Store8  Opcode = 0x3c
	OpI64Store16 Opcode = 0x3d
	OpI64Store32 Opcode = 0x3e
	OpMemorySize Opcode = 0x3f
	OpMemoryGrow Opcode = 0x40

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42
	OpF32Const Opcode = 0x43
	OpF64Const Opcode = 0x44

	// Comparisons, unary/binary arithmetic, and conversions occupy 0x45-0xc4
	// contiguously per the Wasm 1.0 core spec; the validator's arithmetic
	// table (arithTable in validator/opcode_table.go) enumerates them by
	// exact byte rather than by named constant here, the same way wagon's
	// validate.go does.

	OpRefNull   Opcode = 0xd0
	OpRefIsNull Opcode = 0xd1
	OpRefFunc   Opcode = 0xd2

	// OpMiscPrefix introduces a LEB128 sub-opcode: truncation saturating
	// conversions (0-7), and bulk-memory/table ops (8-17).
	OpMiscPrefix Opcode = 0xfc
)

// Misc (0xfc-prefixed) sub-opcodes.
const (
	MiscI32TruncSatF32S uint32 = 0
	MiscI32TruncSatF32U uint32 = 1
	MiscI32TruncSatF64S uint32 = 2
	MiscI32TruncSatF64U uint32 = 3
	MiscI64TruncSatF32S uint32 = 4
	MiscI64TruncSatF32U uint32 = 5
	MiscI64TruncSatF64S uint32 = 6
	MiscI64TruncSatF64U uint32 = 7

	MiscMemoryInit uint32 = 8
	MiscDataDrop   uint32 = 9
	MiscMemoryCopy uint32 = 10
	MiscMemoryFill uint32 = 11
	MiscTableInit  uint32 = 12
	MiscElemDrop   uint32 = 13
	MiscTableCopy  uint32 = 14
	MiscTableGrow  uint32 = 15
	MiscTableSize  uint32 = 16
	MiscTableFill  uint32 = 17
)

// Fast-path opcodes the validator rewrites selected instructions into
// in-place (spec.md §4.4's rewrite table). These occupy byte values the
// Wasm 1.0 core spec leaves unassigned (0xe0-0xef), mirroring the way
// WAMR-style runtimes steal unused opcode space for internal fast paths
// rather than growing the instruction width.
const (
	OpLocalGetFast Opcode = 0xe0
	OpLocalSetFast Opcode = 0xe1
	OpLocalTeeFast Opcode = 0xe2

	OpDropFast64   Opcode = 0xe3
	OpSelectFast64 Opcode = 0xe4

	OpGlobalGetFast64 Opcode = 0xe5
	OpGlobalSetFast64 Opcode = 0xe6

	// OpInternalNop fills the trailing bytes a fast-path rewrite leaves
	// unused, so the code slice's length never changes during rewriting.
	OpInternalNop Opcode = 0xef
)

// BlockTypeEmpty is the single-byte block type encoding for "no params, no
// result" (0x40), distinct from any concrete ValueType byte.
const BlockTypeEmpty byte = 0x40
