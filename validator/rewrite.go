package validator

import (
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

// maxFastOffset is the local-cell-offset ceiling under which local.get/set/
// tee gets rewritten to its single-byte fast-path form (spec.md §4.4,
// "Opcode rewrites").
const maxFastOffset = 128

// rewriteFast replaces the instruction spanning [opStart, instrEnd) with a
// two-byte fast-path form: fastOp, then an offset byte (high bit set for a
// 64-bit local), padding any remaining bytes with no-ops so the code
// slice's length never changes.
func (v *validator) rewriteFast(opStart, instrEnd int, fastOp wasm.Opcode, offset uint32, is64 bool) {
	ob := byte(offset)
	if is64 {
		ob |= 0x80
	}
	v.code[opStart] = byte(fastOp)
	v.code[opStart+1] = ob
	for i := opStart + 2; i < instrEnd; i++ {
		v.code[i] = byte(wasm.OpInternalNop)
	}
}

func (v *validator) stepLocal(opStart int, op wasm.Opcode) error {
	idx, err := v.readULEB32()
	if err != nil {
		return err
	}
	if int(idx) >= len(v.fn.LocalTypes) {
		return v.failSentinel(ErrUnknownLocal, "unknown local")
	}
	t := v.fn.LocalTypes[idx]
	offset := v.fn.LocalOffsets[idx]

	switch op {
	case wasm.OpLocalGet:
		if err := v.pushCells(t); err != nil {
			return err
		}
	case wasm.OpLocalSet:
		if err := v.pop(t); err != nil {
			return err
		}
	case wasm.OpLocalTee:
		if err := v.pop(t); err != nil {
			return err
		}
		if err := v.pushCells(t); err != nil {
			return err
		}
	}

	if offset < maxFastOffset {
		var fastOp wasm.Opcode
		switch op {
		case wasm.OpLocalGet:
			fastOp = wasm.OpLocalGetFast
		case wasm.OpLocalSet:
			fastOp = wasm.OpLocalSetFast
		case wasm.OpLocalTee:
			fastOp = wasm.OpLocalTeeFast
		}
		v.rewriteFast(opStart, v.pos, fastOp, offset, t.Is64())
	}
	return nil
}

func (v *validator) stepGlobal(opStart int, op wasm.Opcode) error {
	idx, err := v.readULEB32()
	if err != nil {
		return err
	}
	g := v.module.GetGlobal(int(idx))
	if g == nil {
		return v.failSentinel(ErrUnknownGlobal, "unknown global")
	}
	t := g.Type.ValueType

	switch op {
	case wasm.OpGlobalGet:
		if err := v.pushCells(t); err != nil {
			return err
		}
		if t.Is64() {
			v.code[opStart] = byte(wasm.OpGlobalGetFast64)
		}
	case wasm.OpGlobalSet:
		if g.Type.Mutability != wasm.Mutable {
			return v.fail("%s", ErrGlobalImmutable)
		}
		if err := v.pop(t); err != nil {
			return err
		}
		if t.Is64() {
			v.code[opStart] = byte(wasm.OpGlobalSetFast64)
		}
	}
	return nil
}

// stepSelect implements spec.md §4.4's select rewrite: the operand type is
// whatever val1/val2 turn out to be, discovered only after popping the
// condition.
func (v *validator) stepSelect(opStart int) error {
	if err := v.pop(wasm.ValueTypeI32); err != nil {
		return err
	}
	t2, err := v.popAny()
	if err != nil {
		return err
	}
	if err := v.pop(t2); err != nil {
		return err
	}
	if t2.Is64() {
		v.code[opStart] = byte(wasm.OpSelectFast64)
	}
	return v.pushCells(t2)
}

func (v *validator) stepTableGetSet(op wasm.Opcode) error {
	if err := v.features.Require(runtimectx.FeatureReferenceTypes); err != nil {
		return v.fail("%s", err)
	}
	idx, err := v.readULEB32()
	if err != nil {
		return err
	}
	table := v.module.GetTable(int(idx))
	if table == nil {
		return v.failSentinel(ErrUnknownTable, "unknown table")
	}
	switch op {
	case wasm.OpTableGet:
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		return v.pushCells(table.ElemType)
	case wasm.OpTableSet:
		if err := v.pop(table.ElemType); err != nil {
			return err
		}
		return v.pop(wasm.ValueTypeI32)
	}
	return nil
}

// stepMemOp validates a memory load/store instruction's alignment
// immediate against its natural alignment (spec.md §4.4, "Alignment
// check") and applies its stack effect.
func (v *validator) stepMemOp(mop memOp) error {
	if len(v.module.MemoryIndexSpace) == 0 {
		return v.failSentinel(ErrUnknownMemory, "unknown memory")
	}
	align, err := v.readULEB32()
	if err != nil {
		return err
	}
	if align > mop.NaturalAlign {
		return v.fail("%s", ErrAlignmentTooLarge)
	}
	if _, err := v.readULEB32(); err != nil { // offset immediate
		return err
	}
	if mop.IsStore {
		if err := v.pop(mop.ValueType); err != nil {
			return err
		}
		return v.pop(wasm.ValueTypeI32)
	}
	if err := v.pop(wasm.ValueTypeI32); err != nil {
		return err
	}
	return v.pushCells(mop.ValueType)
}
