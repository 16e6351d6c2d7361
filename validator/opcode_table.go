package validator

import "github.com/vertexdlt/wrcore/wasm"

// sig is the pop/push type vector of a numeric opcode that carries no
// immediate operands. The validator pops Pop in reverse, then pushes Push.
type sig struct {
	Pop  []wasm.ValueType
	Push []wasm.ValueType
}

var arithTable = map[byte]sig{}

func addRange(lo, hi byte, pop, push []wasm.ValueType) {
	for op := lo; op <= hi; op++ {
		arithTable[op] = sig{Pop: pop, Push: push}
	}
}

func init() {
	i32, i64, f32, f64 := wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64

	arithTable[0x45] = sig{[]wasm.ValueType{i32}, []wasm.ValueType{i32}} // i32.eqz
	addRange(0x46, 0x4f, []wasm.ValueType{i32, i32}, []wasm.ValueType{i32}) // i32 relops

	arithTable[0x50] = sig{[]wasm.ValueType{i64}, []wasm.ValueType{i32}} // i64.eqz
	addRange(0x51, 0x5a, []wasm.ValueType{i64, i64}, []wasm.ValueType{i32}) // i64 relops

	addRange(0x5b, 0x60, []wasm.ValueType{f32, f32}, []wasm.ValueType{i32}) // f32 relops
	addRange(0x61, 0x66, []wasm.ValueType{f64, f64}, []wasm.ValueType{i32}) // f64 relops

	addRange(0x67, 0x69, []wasm.ValueType{i32}, []wasm.ValueType{i32})      // i32 clz/ctz/popcnt
	addRange(0x6a, 0x78, []wasm.ValueType{i32, i32}, []wasm.ValueType{i32}) // i32 binops

	addRange(0x79, 0x7b, []wasm.ValueType{i64}, []wasm.ValueType{i64})      // i64 clz/ctz/popcnt
	addRange(0x7c, 0x8a, []wasm.ValueType{i64, i64}, []wasm.ValueType{i64}) // i64 binops

	addRange(0x8b, 0x91, []wasm.ValueType{f32}, []wasm.ValueType{f32})      // f32 unops
	addRange(0x92, 0x98, []wasm.ValueType{f32, f32}, []wasm.ValueType{f32}) // f32 binops

	addRange(0x99, 0x9f, []wasm.ValueType{f64}, []wasm.ValueType{f64})      // f64 unops
	addRange(0xa0, 0xa6, []wasm.ValueType{f64, f64}, []wasm.ValueType{f64}) // f64 binops

	arithTable[0xa7] = sig{[]wasm.ValueType{i64}, []wasm.ValueType{i32}} // i32.wrap_i64
	addRange(0xa8, 0xa9, []wasm.ValueType{f32}, []wasm.ValueType{i32})   // i32.trunc_f32_s/u
	addRange(0xaa, 0xab, []wasm.ValueType{f64}, []wasm.ValueType{i32})   // i32.trunc_f64_s/u

	addRange(0xac, 0xad, []wasm.ValueType{i32}, []wasm.ValueType{i64}) // i64.extend_i32_s/u
	addRange(0xae, 0xaf, []wasm.ValueType{f32}, []wasm.ValueType{i64}) // i64.trunc_f32_s/u
	addRange(0xb0, 0xb1, []wasm.ValueType{f64}, []wasm.ValueType{i64}) // i64.trunc_f64_s/u

	addRange(0xb2, 0xb3, []wasm.ValueType{i32}, []wasm.ValueType{f32}) // f32.convert_i32_s/u
	addRange(0xb4, 0xb5, []wasm.ValueType{i64}, []wasm.ValueType{f32}) // f32.convert_i64_s/u
	arithTable[0xb6] = sig{[]wasm.ValueType{f64}, []wasm.ValueType{f32}} // f32.demote_f64

	addRange(0xb7, 0xb8, []wasm.ValueType{i32}, []wasm.ValueType{f64}) // f64.convert_i32_s/u
	addRange(0xb9, 0xba, []wasm.ValueType{i64}, []wasm.ValueType{f64}) // f64.convert_i64_s/u
	arithTable[0xbb] = sig{[]wasm.ValueType{f32}, []wasm.ValueType{f64}} // f64.promote_f32

	arithTable[0xbc] = sig{[]wasm.ValueType{f32}, []wasm.ValueType{i32}} // i32.reinterpret_f32
	arithTable[0xbd] = sig{[]wasm.ValueType{f64}, []wasm.ValueType{i64}} // i64.reinterpret_f64
	arithTable[0xbe] = sig{[]wasm.ValueType{i32}, []wasm.ValueType{f32}} // f32.reinterpret_i32
	arithTable[0xbf] = sig{[]wasm.ValueType{i64}, []wasm.ValueType{f64}} // f64.reinterpret_i64

	// Sign-extension proposal, gated on FeatureSignExtension by the caller.
	addRange(0xc0, 0xc1, []wasm.ValueType{i32}, []wasm.ValueType{i32}) // i32.extend8_s/extend16_s
	addRange(0xc2, 0xc4, []wasm.ValueType{i64}, []wasm.ValueType{i64}) // i64.extend8_s/16_s/32_s
}

// isSignExtensionOpcode reports the opcodes checked against
// runtimectx.FeatureSignExtension.
func isSignExtensionOpcode(op byte) bool {
	return op >= 0xc0 && op <= 0xc4
}

// memOp describes a memory load/store instruction's value type, direction,
// and natural alignment exponent (spec.md §4.4, "Alignment check").
type memOp struct {
	ValueType     wasm.ValueType
	NaturalAlign  uint32
	IsStore       bool
}

var memOpTable = map[byte]memOp{
	0x28: {wasm.ValueTypeI32, 2, false}, // i32.load
	0x29: {wasm.ValueTypeI64, 3, false}, // i64.load
	0x2a: {wasm.ValueTypeF32, 2, false}, // f32.load
	0x2b: {wasm.ValueTypeF64, 3, false}, // f64.load
	0x2c: {wasm.ValueTypeI32, 0, false}, // i32.load8_s
	0x2d: {wasm.ValueTypeI32, 0, false}, // i32.load8_u
	0x2e: {wasm.ValueTypeI32, 1, false}, // i32.load16_s
	0x2f: {wasm.ValueTypeI32, 1, false}, // i32.load16_u
	0x30: {wasm.ValueTypeI64, 0, false}, // i64.load8_s
	0x31: {wasm.ValueTypeI64, 0, false}, // i64.load8_u
	0x32: {wasm.ValueTypeI64, 1, false}, // i64.load16_s
	0x33: {wasm.ValueTypeI64, 1, false}, // i64.load16_u
	0x34: {wasm.ValueTypeI64, 2, false}, // i64.load32_s
	0x35: {wasm.ValueTypeI64, 2, false}, // i64.load32_u
	0x36: {wasm.ValueTypeI32, 2, true},  // i32.store
	0x37: {wasm.ValueTypeI64, 3, true},  // i64.store
	0x38: {wasm.ValueTypeF32, 2, true},  // f32.store
	0x39: {wasm.ValueTypeF64, 3, true},  // f64.store
	0x3a: {wasm.ValueTypeI32, 0, true},  // i32.store8
	0x3b: {wasm.ValueTypeI32, 1, true},  // i32.store16
	0x3c: {wasm.ValueTypeI64, 0, true},  // i64.store8
	0x3d: {wasm.ValueTypeI64, 1, true},  // i64.store16
	0x3e: {wasm.ValueTypeI64, 2, true},  // i64.store32
}
