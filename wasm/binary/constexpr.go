package binary

import (
	"github.com/vertexdlt/wrcore/wasm"
)

// readConstExpr reads a constant initializer expression: a single
// i32.const/i64.const/f32.const/f64.const/global.get instruction followed by
// `end`. Per spec.md §4.3, the loader only captures which form it is and its
// literal/index payload — it never evaluates a global.get reference, since
// resolving it is the instantiator's job. (decodeGlobalSection does reject a
// global.get that is not a backward reference.)
func (c *cursor) readConstExpr() (wasm.ConstExpr, error) {
	op, err := c.readU8()
	if err != nil {
		return wasm.ConstExpr{}, err
	}

	var ce wasm.ConstExpr
	switch wasm.Opcode(op) {
	case wasm.OpI32Const:
		v, err := c.readSLEB32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeI32, LiteralBits: uint64(uint32(v))}
	case wasm.OpI64Const:
		v, err := c.readSLEB64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeI64, LiteralBits: uint64(v)}
	case wasm.OpF32Const:
		raw, err := c.readU32LE()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeF32, LiteralBits: uint64(raw)}
	case wasm.OpF64Const:
		lo, err := c.readU32LE()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		hi, err := c.readU32LE()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		bits := uint64(lo) | uint64(hi)<<32
		ce = wasm.ConstExpr{Kind: wasm.ConstExprLiteral, LiteralType: wasm.ValueTypeF64, LiteralBits: bits}
	case wasm.OpGlobalGet:
		idx, err := c.readULEB32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprGlobalGet, GlobalIndex: idx}
	default:
		return wasm.ConstExpr{}, c.errf("illegal opcode in constant expression")
	}

	end, err := c.readU8()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if wasm.Opcode(end) != wasm.OpEnd {
		return wasm.ConstExpr{}, c.errf("unexpected end of constant expression")
	}
	return ce, nil
}
