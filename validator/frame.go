package validator

import "github.com/vertexdlt/wrcore/wasm"

// controlFrame is the validator's static control-stack entry (spec.md §3,
// "Block"). Grounded on the teacher's vm/block.go Block/Frame shapes and on
// wagon's validate.go control-stack entries, but kept purely at validation
// time — nothing here survives into an execution engine except the branch
// table it emits.
type controlFrame struct {
	Kind wasm.LabelKind

	// Params/Results describe the block's type: for LOOP, the label type a
	// branch must match is Params; for every other kind, it's Results.
	Params  []wasm.ValueType
	Results []wasm.ValueType

	StartAddr int
	ElseAddr  int // -1 until an ELSE is seen
	EndAddr   int // -1 until END is seen

	// EntryHeight is the value-stack cell height snapshot taken when the
	// frame was pushed, beneath the block's own params. It is the floor a
	// pop() may not cross without polymorphic permission, and the height
	// the frame must return to (plus its Results) when it's popped.
	EntryHeight int

	// LabelHeight is EntryHeight plus the block's param cells: the height at
	// which the block body actually starts running, with its params
	// resident and addressable like ordinary stack values. A branch that
	// targets this frame pops down to LabelHeight, not EntryHeight, since
	// the label type for a LOOP is its Params (spec.md §4.4, "br/br_if").
	LabelHeight int

	IsPolymorphic bool

	// PendingBranches holds indices into the validator's branch table for
	// every branch instruction (br/br_if/br_table/return/if/else) that
	// targets this frame; back-patched when the frame is popped.
	PendingBranches []int

	// EntryIndex is the branch-table index at which a LOOP block ends,
	// captured at push time (so a br back to the loop's start always knows
	// its own entry index). For other kinds it stays unset: popFrame uses
	// the branch table's length at pop time instead.
	EntryIndex int
}

// labelType returns the frame's label type: Params for LOOP, Results
// otherwise (spec.md §4.4, "br/br_if/br_table").
func (f *controlFrame) labelType() []wasm.ValueType {
	if f.Kind == wasm.LabelLoop {
		return f.Params
	}
	return f.Results
}

func cellsOf(types []wasm.ValueType) int {
	n := 0
	for _, t := range types {
		n += t.CellCount()
	}
	return n
}

// expandCells mirrors pushCells' own expansion, one tag per cell, so a
// label type can be compared directly against trailing v.stack entries
// without special-casing multi-cell values.
func expandCells(types []wasm.ValueType) []wasm.ValueType {
	out := make([]wasm.ValueType, 0, cellsOf(types))
	for _, t := range types {
		for i := 0; i < t.CellCount(); i++ {
			out = append(out, t)
		}
	}
	return out
}
