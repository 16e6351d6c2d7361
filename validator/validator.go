// Package validator implements spec.md §4.4: per-function abstract typed
// stack simulation over a Wasm opcode stream, structured control-flow
// checking, branch-table emission with end-of-block back-patching, and the
// small family of in-place opcode rewrites an execution engine relies on
// for fast dispatch.
package validator

import (
	"github.com/vertexdlt/wrcore/leb128"
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

// Growth chunk sizes named in spec.md §4.4. Go's append already amortizes
// growth; these only seed initial capacity so the common case (small
// functions) allocates once, the way the chunked-realloc design intends.
const (
	valueStackChunk   = 16
	controlStackChunk = 8
	branchTableChunk  = 8

	maxStackCells = 65535
)

// Validate runs spec.md §4.4's validator over fn, the function's body is
// owned exclusively by the caller for the duration of the call: on success,
// fn.Body has selected opcodes rewritten in place and fn.MaxStackCellNum,
// fn.MaxBlockNum, and fn.BranchTable are populated. On failure fn is left
// partially rewritten and must be discarded by the caller (spec.md §5, §9).
// The first error encountered, if any, is also recorded on ctx via
// ctx.Fail, satisfying the first-occurrence-wins error buffer spec.md §6
// describes.
func Validate(fn *wasm.Function, module *wasm.Module, ctx *runtimectx.Context) error {
	v := &validator{
		fn:      fn,
		module:  module,
		features: ctx.Features,
		code:    fn.Body,
		stack:   make([]wasm.ValueType, 0, valueStackChunk),
		ctrl:    make([]controlFrame, 0, controlStackChunk),
		branchTable: make([]wasm.BranchTableEntry, 0, branchTableChunk),
	}
	if err := v.run(); err != nil {
		ctx.Fail(err)
		return err
	}
	fn.MaxStackCellNum = uint32(v.maxCells)
	fn.MaxBlockNum = uint32(v.maxBlocks)
	fn.BranchTable = v.branchTable
	return nil
}

type validator struct {
	fn       *wasm.Function
	module   *wasm.Module
	features runtimectx.Features
	code     []byte
	pos      int

	stack []wasm.ValueType
	cells int // running cell height, kept in sync with stack

	ctrl []controlFrame

	branchTable []wasm.BranchTableEntry

	maxCells  int
	maxBlocks int
}

func (v *validator) fail(format string, args ...interface{}) error {
	return typeErrorf(v.fn.Index, v.pos, format, args...)
}

// failSentinel reports msg at the current offset while wrapping sentinel,
// so callers can errors.Is against the package's Err* vars instead of
// matching on message text.
func (v *validator) failSentinel(sentinel error, msg string) error {
	return wrapTypeError(v.fn.Index, v.pos, msg, sentinel)
}

func (v *validator) topFrame() *controlFrame {
	return &v.ctrl[len(v.ctrl)-1]
}

func (v *validator) depth() int {
	return len(v.ctrl)
}

// --- byte-stream primitives, operating directly on v.code ---

func (v *validator) readByte() (byte, error) {
	if v.pos >= len(v.code) {
		return 0, v.failSentinel(ErrUnexpectedEnd, "unexpected end of section or function")
	}
	b := v.code[v.pos]
	v.pos++
	return b, nil
}

func (v *validator) readULEB32() (uint32, error) {
	val, n, err := leb128.Uint32(v.code[v.pos:])
	if err != nil {
		return 0, v.fail("integer representation too long")
	}
	v.pos += int(n)
	return val, nil
}

func (v *validator) readSLEB32() (int32, error) {
	val, n, err := leb128.Int32(v.code[v.pos:])
	if err != nil {
		return 0, v.fail("integer representation too long")
	}
	v.pos += int(n)
	return val, nil
}

func (v *validator) readSLEB33AsBlockType() (int32, error) {
	// Block types are encoded as a 33-bit signed LEB128 in the spec; a
	// 32-bit signed decode is sufficient for every type index this runtime
	// will ever see in practice, matching the teacher's own 32-bit reads.
	return v.readSLEB32()
}

func (v *validator) readSLEB64() (int64, error) {
	val, n, err := leb128.Int64(v.code[v.pos:])
	if err != nil {
		return 0, v.fail("integer representation too long")
	}
	v.pos += int(n)
	return val, nil
}

// readRawU32/readRawU64 read fixed-width little-endian bit patterns, used
// only by f32.const/f64.const.
func (v *validator) readRawU32() (uint32, error) {
	if v.pos+4 > len(v.code) {
		return 0, v.failSentinel(ErrUnexpectedEnd, "unexpected end of section or function")
	}
	b := v.code[v.pos : v.pos+4]
	val := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	v.pos += 4
	return val, nil
}

func (v *validator) readRawU64() (uint64, error) {
	lo, err := v.readRawU32()
	if err != nil {
		return 0, err
	}
	hi, err := v.readRawU32()
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// --- value stack ---

func (v *validator) pushCells(types ...wasm.ValueType) error {
	for _, t := range types {
		n := t.CellCount()
		if v.cells+n > maxStackCells {
			return v.failSentinel(ErrStackDepthExceeded, "operand stack depth limit exceeded")
		}
		for i := 0; i < n; i++ {
			v.stack = append(v.stack, t)
		}
		v.cells += n
	}
	if v.cells > v.maxCells {
		v.maxCells = v.cells
	}
	return nil
}

// pop expects one value of type t on top of the stack, honoring the
// polymorphic wildcard rule (spec.md §4.4, "Polymorphic stack rule"): once
// the stack has been drained down to the current frame's snapshot height
// and that frame is polymorphic, further pops silently succeed.
func (v *validator) pop(t wasm.ValueType) error {
	frame := v.topFrame()
	n := t.CellCount()
	for i := 0; i < n; i++ {
		if v.cells <= frame.EntryHeight {
			if frame.IsPolymorphic {
				continue
			}
			return v.fail("type mismatch: stack size does not match block type")
		}
		got := v.stack[len(v.stack)-1]
		if t != wasm.ValueTypeAny && got != t && got != wasm.ValueTypeAny {
			return v.fail("type mismatch: expected %s, got %s", t, got)
		}
		v.stack = v.stack[:len(v.stack)-1]
		v.cells--
	}
	return nil
}

// popAny pops whatever single value is on top (used by drop/select), and
// reports the popped type — ValueTypeAny if the stack was already drained
// within a polymorphic region.
func (v *validator) popAny() (wasm.ValueType, error) {
	frame := v.topFrame()
	if v.cells <= frame.EntryHeight {
		if frame.IsPolymorphic {
			return wasm.ValueTypeAny, nil
		}
		return 0, v.fail("type mismatch: stack size does not match block type")
	}
	got := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-got.CellCount()]
	v.cells -= got.CellCount()
	return got, nil
}

func (v *validator) peekTop() (wasm.ValueType, bool) {
	frame := v.topFrame()
	if v.cells <= frame.EntryHeight {
		return wasm.ValueTypeAny, frame.IsPolymorphic
	}
	return v.stack[len(v.stack)-1], true
}

// truncateTo resets the abstract stack to exactly height cells, used when
// an ELSE, a block end, or a tail call resets the stack to a frame's entry
// snapshot (spec.md §4.4 "else" / "end" / "Tail-call variants"). Since
// v.stack carries exactly one entry per cell, a cell height doubles as a
// slice length.
func (v *validator) truncateTo(height int) {
	v.stack = v.stack[:height]
	v.cells = height
}

// --- control stack ---

func (v *validator) pushFrame(kind wasm.LabelKind, params, results []wasm.ValueType, startAddr int) error {
	f := controlFrame{
		Kind:        kind,
		Params:      params,
		Results:     results,
		StartAddr:   startAddr,
		ElseAddr:    -1,
		EndAddr:     -1,
		EntryHeight: v.cells,
	}
	if kind == wasm.LabelLoop {
		f.EntryIndex = len(v.branchTable)
	}
	v.ctrl = append(v.ctrl, f)
	if len(v.ctrl) > v.maxBlocks {
		v.maxBlocks = len(v.ctrl)
	}
	if err := v.pushCells(params...); err != nil {
		return err
	}
	v.ctrl[len(v.ctrl)-1].LabelHeight = v.cells
	return nil
}

// popFrame pops the topmost control frame, requiring its current stack to
// match its result types exactly, then back-patches every pending branch
// entry the frame accumulated (spec.md §4.4, "end").
func (v *validator) popFrame() (controlFrame, error) {
	frame := v.topFrame()
	if frame.Kind == wasm.LabelIf && frame.ElseAddr < 0 {
		if !sameTypes(frame.Params, frame.Results) {
			return controlFrame{}, v.fail("type mismatch: else branch missing")
		}
	}
	// Require the stack to match Results exactly, popping in reverse: a
	// correct body always lands back at EntryHeight once its Results have
	// been accounted for, whatever it did with its own params in between.
	for i := len(frame.Results) - 1; i >= 0; i-- {
		if err := v.pop(frame.Results[i]); err != nil {
			return controlFrame{}, err
		}
	}
	if v.cells != frame.EntryHeight && !frame.IsPolymorphic {
		return controlFrame{}, v.fail("type mismatch: stack size does not match block type")
	}

	entryIndex := len(v.branchTable)
	if frame.Kind == wasm.LabelLoop {
		entryIndex = frame.EntryIndex
	}
	for _, idx := range frame.PendingBranches {
		e := &v.branchTable[idx]
		switch {
		case frame.Kind == wasm.LabelLoop:
			e.TargetIP = frame.StartAddr
		case wasm.Opcode(e.SourceOp) == wasm.OpIf:
			if frame.ElseAddr >= 0 {
				e.TargetIP = frame.ElseAddr
			} else {
				e.TargetIP = frame.EndAddr
			}
		default:
			e.TargetIP = frame.EndAddr
		}
		e.TargetEntryIndex = entryIndex
	}

	// The frame's own params (and any polymorphic leftovers above them)
	// never escape past this point; drop straight to EntryHeight and push
	// Results fresh rather than trust whatever is physically left behind.
	v.truncateTo(frame.EntryHeight)
	v.ctrl = v.ctrl[:len(v.ctrl)-1]
	if err := v.pushCells(frame.Results...); err != nil {
		return controlFrame{}, err
	}
	return *frame, nil
}

func sameTypes(a, b []wasm.ValueType) bool {
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

// --- branch handling ---

// addBranchEntry appends a new, not-yet-patched branch table entry and
// enqueues it on target's pending list for later back-patching.
func (v *validator) addBranchEntry(op byte, target *controlFrame, pop, push int) {
	idx := len(v.branchTable)
	v.branchTable = append(v.branchTable, wasm.BranchTableEntry{
		SourceOp:  op,
		TargetIP:  -1,
		PopCount:  pop,
		PushCount: push,
	})
	target.PendingBranches = append(target.PendingBranches, idx)
}

// checkLabel validates the current stack against target's label type and
// returns the pop/push cell counts to record on the branch entry (spec.md
// §4.4, "br/br_if/br_table").
func (v *validator) checkLabel(target *controlFrame) (popCells, pushCells int, err error) {
	labelCells := expandCells(target.labelType())
	pushCells = len(labelCells)
	cur := v.topFrame()

	needed := len(labelCells)
	have := v.cells - cur.EntryHeight
	check := needed
	if have < needed {
		if !cur.IsPolymorphic {
			return 0, 0, v.fail("type mismatch: stack size does not match block type")
		}
		check = have
	}
	for i := 0; i < check; i++ {
		want := labelCells[needed-1-i]
		got := v.stack[len(v.stack)-1-i]
		if want != wasm.ValueTypeAny && got != want && got != wasm.ValueTypeAny {
			return 0, 0, v.fail("type mismatch: expected %s, got %s", want, got)
		}
	}
	popCells = v.cells - target.LabelHeight
	return popCells, pushCells, nil
}

func (v *validator) branchTargetByDepth(depth uint32) (*controlFrame, error) {
	if int(depth) >= len(v.ctrl) {
		return nil, v.failSentinel(ErrUnknownLabel, "unknown label")
	}
	return &v.ctrl[len(v.ctrl)-1-int(depth)], nil
}

// resolveBlockType decodes a block/loop/if's type byte or LEB128 type
// index into param/result vectors (spec.md §4.4, "Structured control flow
// semantics").
func (v *validator) resolveBlockType() (params, results []wasm.ValueType, err error) {
	save := v.pos
	b, err := v.readByte()
	if err != nil {
		return nil, nil, err
	}
	if b == wasm.BlockTypeEmpty {
		return nil, nil, nil
	}
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeFuncref, wasm.ValueTypeExternref, wasm.ValueTypeV128:
		return nil, []wasm.ValueType{wasm.ValueType(b)}, nil
	}
	// Not a single-byte value type: re-read as a signed LEB128 type index.
	v.pos = save
	idx, err := v.readSLEB33AsBlockType()
	if err != nil {
		return nil, nil, err
	}
	if idx < 0 || int(idx) >= len(v.module.Types) {
		return nil, nil, v.failSentinel(ErrUnknownType, "unknown type")
	}
	ft := v.module.Types[idx]
	return ft.Params, ft.Results, nil
}
