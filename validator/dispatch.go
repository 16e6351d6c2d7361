package validator

import (
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

// run drives the opcode dispatch loop: spec.md §4.4's "Initial state" is a
// single FUNCTION frame; the loop ends the moment that frame is popped by
// its terminating END.
func (v *validator) run() error {
	if err := v.pushFrame(wasm.LabelFunction, v.fn.Type.Params, v.fn.Type.Results, 0); err != nil {
		return err
	}
	// The function frame's own params are its locals, not stack values;
	// undo the pushCells a plain pushFrame call would otherwise leave
	// behind, since local.get/set/tee address locals directly rather than
	// reading them off the operand stack.
	v.truncateTo(0)
	v.maxCells = 0
	v.ctrl[0].EntryHeight = 0
	v.ctrl[0].LabelHeight = 0

	for {
		if v.pos >= len(v.code) {
			return v.failSentinel(ErrUnexpectedEnd, "unexpected end of section or function")
		}
		opStart := v.pos
		opByte, err := v.readByte()
		if err != nil {
			return err
		}

		if err := v.step(opStart, opByte); err != nil {
			return err
		}

		if v.depth() == 0 {
			if v.pos != len(v.code) {
				return v.failSentinel(ErrEndOpcodeExpected, "END opcode expected")
			}
			return nil
		}
	}
}

func (v *validator) step(opStart int, opByte byte) error {
	op := wasm.Opcode(opByte)

	if sig, ok := arithTable[opByte]; ok {
		if isSignExtensionOpcode(opByte) {
			if err := v.features.Require(runtimectx.FeatureSignExtension); err != nil {
				return v.fail("%s", err)
			}
		}
		for i := len(sig.Pop) - 1; i >= 0; i-- {
			if err := v.pop(sig.Pop[i]); err != nil {
				return err
			}
		}
		return v.pushCells(sig.Push...)
	}

	if mop, ok := memOpTable[opByte]; ok {
		return v.stepMemOp(mop)
	}

	switch op {
	case wasm.OpUnreachable:
		v.topFrame().IsPolymorphic = true
		return nil
	case wasm.OpNop:
		return nil

	case wasm.OpBlock, wasm.OpLoop:
		params, results, err := v.resolveBlockType()
		if err != nil {
			return err
		}
		for i := len(params) - 1; i >= 0; i-- {
			if err := v.pop(params[i]); err != nil {
				return err
			}
		}
		kind := wasm.LabelBlock
		if op == wasm.OpLoop {
			kind = wasm.LabelLoop
		}
		return v.pushFrame(kind, params, results, v.pos)

	case wasm.OpIf:
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		params, results, err := v.resolveBlockType()
		if err != nil {
			return err
		}
		for i := len(params) - 1; i >= 0; i-- {
			if err := v.pop(params[i]); err != nil {
				return err
			}
		}
		if err := v.pushFrame(wasm.LabelIf, params, results, v.pos); err != nil {
			return err
		}
		frame := v.topFrame()
		popCells := v.cells - frame.LabelHeight
		v.addBranchEntry(byte(wasm.OpIf), frame, popCells, cellsOf(frame.Results))
		return nil

	case wasm.OpElse:
		frame := v.topFrame()
		if frame.Kind != wasm.LabelIf {
			return v.fail("else without matching if")
		}
		atElse := v.cells
		for i := len(frame.Results) - 1; i >= 0; i-- {
			if err := v.pop(frame.Results[i]); err != nil {
				return err
			}
		}
		if v.cells != frame.EntryHeight && !frame.IsPolymorphic {
			return v.fail("type mismatch: stack size does not match block type")
		}
		popCells := atElse - frame.LabelHeight
		// Reset to right after the if's own params, ready for the else
		// branch to run with the same inputs the if branch started with.
		v.truncateTo(frame.EntryHeight)
		frame.IsPolymorphic = false
		frame.ElseAddr = v.pos
		if err := v.pushCells(frame.Params...); err != nil {
			return err
		}
		v.addBranchEntry(byte(wasm.OpElse), frame, popCells, cellsOf(frame.Results))
		return nil

	case wasm.OpEnd:
		v.topFrame().EndAddr = opStart
		_, err := v.popFrame()
		return err

	case wasm.OpBr:
		depth, err := v.readULEB32()
		if err != nil {
			return err
		}
		target, err := v.branchTargetByDepth(depth)
		if err != nil {
			return err
		}
		pop, push, err := v.checkLabel(target)
		if err != nil {
			return err
		}
		v.addBranchEntry(byte(wasm.OpBr), target, pop, push)
		v.topFrame().IsPolymorphic = true
		return nil

	case wasm.OpBrIf:
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		depth, err := v.readULEB32()
		if err != nil {
			return err
		}
		target, err := v.branchTargetByDepth(depth)
		if err != nil {
			return err
		}
		pop, push, err := v.checkLabel(target)
		if err != nil {
			return err
		}
		v.addBranchEntry(byte(wasm.OpBrIf), target, pop, push)
		return nil

	case wasm.OpBrTable:
		count, err := v.readULEB32()
		if err != nil {
			return err
		}
		targets := make([]*controlFrame, 0, count+1)
		for i := uint32(0); i < count; i++ {
			d, err := v.readULEB32()
			if err != nil {
				return err
			}
			t, err := v.branchTargetByDepth(d)
			if err != nil {
				return err
			}
			targets = append(targets, t)
		}
		defaultDepth, err := v.readULEB32()
		if err != nil {
			return err
		}
		defaultTarget, err := v.branchTargetByDepth(defaultDepth)
		if err != nil {
			return err
		}
		targets = append(targets, defaultTarget)

		var firstLabel []wasm.ValueType
		for i, t := range targets {
			if i == 0 {
				firstLabel = t.labelType()
			} else if !sameTypes(firstLabel, t.labelType()) {
				return v.fail("type mismatch: br_table targets must all use same result type")
			}
			pop, push, err := v.checkLabel(t)
			if err != nil {
				return err
			}
			v.addBranchEntry(byte(wasm.OpBrTable), t, pop, push)
		}
		v.topFrame().IsPolymorphic = true
		return nil

	case wasm.OpReturn:
		fnFrame := &v.ctrl[0]
		pop, push, err := v.checkLabel(fnFrame)
		if err != nil {
			return err
		}
		v.addBranchEntry(byte(wasm.OpReturn), fnFrame, pop, push)
		v.topFrame().IsPolymorphic = true
		return nil

	case wasm.OpCall:
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		callee := v.module.GetFunction(int(idx))
		if callee == nil {
			return v.failSentinel(ErrUnknownFunction, "unknown function")
		}
		return v.applyCallSignature(callee.Type)

	case wasm.OpCallIndirect:
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
		if len(v.module.TableIndexSpace) == 0 {
			return v.failSentinel(ErrUnknownTable, "unknown table")
		}
		ft := v.module.GetType(typeIdx)
		if ft == nil {
			return v.failSentinel(ErrUnknownType, "unknown type")
		}
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		return v.applyCallSignature(ft)

	case wasm.OpReturnCall, wasm.OpReturnCallIndirect:
		return v.stepTailCall(op)

	case wasm.OpDrop:
		t, err := v.popAny()
		if err != nil {
			return err
		}
		if t.Is64() {
			v.code[opStart] = byte(wasm.OpDropFast64)
		}
		return nil

	case wasm.OpSelect:
		return v.stepSelect(opStart)

	case wasm.OpSelectT:
		n, err := v.readULEB32()
		if err != nil {
			return err
		}
		var t wasm.ValueType
		for i := uint32(0); i < n; i++ {
			t, err = v.readValueTypeImm()
			if err != nil {
				return err
			}
		}
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		return v.pushCells(t)

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		return v.stepLocal(opStart, op)

	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		return v.stepGlobal(opStart, op)

	case wasm.OpTableGet, wasm.OpTableSet:
		return v.stepTableGetSet(op)

	case wasm.OpMemorySize:
		if len(v.module.MemoryIndexSpace) == 0 {
			return v.failSentinel(ErrUnknownMemory, "unknown memory")
		}
		if _, err := v.readByte(); err != nil { // reserved memory index, must be 0
			return err
		}
		return v.pushCells(wasm.ValueTypeI32)

	case wasm.OpMemoryGrow:
		if len(v.module.MemoryIndexSpace) == 0 {
			return v.failSentinel(ErrUnknownMemory, "unknown memory")
		}
		if _, err := v.readByte(); err != nil {
			return err
		}
		v.module.HasMemoryGrow = true
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeI32)

	case wasm.OpI32Const:
		if _, err := v.readSLEB32(); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeI32)
	case wasm.OpI64Const:
		if _, err := v.readSLEB64(); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeI64)
	case wasm.OpF32Const:
		if _, err := v.readRawU32(); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeF32)
	case wasm.OpF64Const:
		if _, err := v.readRawU64(); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeF64)

	case wasm.OpRefNull:
		t, err := v.readValueTypeImm()
		if err != nil {
			return err
		}
		if err := v.features.Require(runtimectx.FeatureReferenceTypes); err != nil {
			return v.fail("%s", err)
		}
		return v.pushCells(t)
	case wasm.OpRefIsNull:
		if _, err := v.popAny(); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeI32)
	case wasm.OpRefFunc:
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		if v.module.GetFunction(int(idx)) == nil {
			return v.failSentinel(ErrUndeclaredFuncRef, "undeclared function reference")
		}
		return v.pushCells(wasm.ValueTypeFuncref)

	case wasm.OpMiscPrefix:
		return v.stepMisc()

	default:
		return v.fail("illegal opcode 0x%02x", opByte)
	}
}
