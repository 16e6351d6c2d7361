package validator

import (
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

// stepMisc handles the 0xfc-prefixed instructions: the saturating
// truncation conversions and the bulk-memory/table operations (spec.md §6,
// "bulk memory ... saturating truncation").
func (v *validator) stepMisc() error {
	sub, err := v.readULEB32()
	if err != nil {
		return err
	}

	switch sub {
	case wasm.MiscI32TruncSatF32S, wasm.MiscI32TruncSatF32U:
		return v.satTrunc(wasm.ValueTypeF32, wasm.ValueTypeI32)
	case wasm.MiscI32TruncSatF64S, wasm.MiscI32TruncSatF64U:
		return v.satTrunc(wasm.ValueTypeF64, wasm.ValueTypeI32)
	case wasm.MiscI64TruncSatF32S, wasm.MiscI64TruncSatF32U:
		return v.satTrunc(wasm.ValueTypeF32, wasm.ValueTypeI64)
	case wasm.MiscI64TruncSatF64S, wasm.MiscI64TruncSatF64U:
		return v.satTrunc(wasm.ValueTypeF64, wasm.ValueTypeI64)

	case wasm.MiscMemoryInit:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		segIdx, err := v.readULEB32()
		if err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil { // reserved memory index
			return err
		}
		if !v.module.HasDataCount {
			return v.failSentinel(ErrDataCountRequired, "data count section required")
		}
		if segIdx >= v.module.DataCount {
			return v.failSentinel(ErrUnknownDataSegment, "unknown data segment")
		}
		return v.popI32x3()

	case wasm.MiscDataDrop:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		segIdx, err := v.readULEB32()
		if err != nil {
			return err
		}
		if !v.module.HasDataCount {
			return v.failSentinel(ErrDataCountRequired, "data count section required")
		}
		if segIdx >= v.module.DataCount {
			return v.failSentinel(ErrUnknownDataSegment, "unknown data segment")
		}
		return nil

	case wasm.MiscMemoryCopy:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil { // dst memory index, reserved
			return err
		}
		if _, err := v.readULEB32(); err != nil { // src memory index, reserved
			return err
		}
		return v.popI32x3()

	case wasm.MiscMemoryFill:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil { // reserved memory index
			return err
		}
		return v.popI32x3()

	case wasm.MiscTableInit:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil { // elem index
			return err
		}
		if _, err := v.readULEB32(); err != nil { // table index
			return err
		}
		return v.popI32x3()

	case wasm.MiscElemDrop:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil {
			return err
		}
		return nil

	case wasm.MiscTableCopy:
		if err := v.requireBulkMemory(); err != nil {
			return err
		}
		if _, err := v.readULEB32(); err != nil { // dst table index
			return err
		}
		if _, err := v.readULEB32(); err != nil { // src table index
			return err
		}
		return v.popI32x3()

	case wasm.MiscTableGrow:
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		table := v.module.GetTable(int(idx))
		if table == nil {
			return v.failSentinel(ErrUnknownTable, "unknown table")
		}
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(table.ElemType); err != nil {
			return err
		}
		return v.pushCells(wasm.ValueTypeI32)

	case wasm.MiscTableSize:
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		if v.module.GetTable(int(idx)) == nil {
			return v.failSentinel(ErrUnknownTable, "unknown table")
		}
		return v.pushCells(wasm.ValueTypeI32)

	case wasm.MiscTableFill:
		idx, err := v.readULEB32()
		if err != nil {
			return err
		}
		table := v.module.GetTable(int(idx))
		if table == nil {
			return v.failSentinel(ErrUnknownTable, "unknown table")
		}
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(table.ElemType); err != nil {
			return err
		}
		return v.pop(wasm.ValueTypeI32)

	default:
		return v.fail("illegal opcode 0xfc %d", sub)
	}
}

func (v *validator) requireBulkMemory() error {
	if err := v.features.Require(runtimectx.FeatureBulkMemory); err != nil {
		return v.fail("%s", err)
	}
	return nil
}

func (v *validator) satTrunc(from, to wasm.ValueType) error {
	if err := v.features.Require(runtimectx.FeatureSaturatingTruncation); err != nil {
		return v.fail("%s", err)
	}
	if err := v.pop(from); err != nil {
		return err
	}
	return v.pushCells(to)
}

func (v *validator) popI32x3() error {
	for i := 0; i < 3; i++ {
		if err := v.pop(wasm.ValueTypeI32); err != nil {
			return err
		}
	}
	return nil
}
