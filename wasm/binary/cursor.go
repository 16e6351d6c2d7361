package binary

import (
	"unicode/utf8"

	"github.com/vertexdlt/wrcore/leb128"
	"github.com/vertexdlt/wrcore/wasm"
)

// cursor is a bounds-checked reader over a byte slice. Every read primitive
// named in spec.md §4.1 is a method here; each checks p+n <= len(buf) before
// advancing, returning a *wasm.SectionError on overrun instead of panicking
// the way a raw slice index would.
//
// cursor never copies buf: readSlice returns sub-slices of it,
// so the code section's bytes stay addressable (and, later, mutable) for
// the validator's in-place opcode rewrites.
type cursor struct {
	buf       []byte
	pos       int
	sectionID int // -1 outside section loading, for error messages
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf, sectionID: -1}
}

func (c *cursor) errf(msg string) *wasm.SectionError {
	return wasm.NewSectionError(c.sectionID, msg)
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.buf)
}

// readU8 reads a single byte.
func (c *cursor) readU8() (byte, error) {
	if c.remaining() < 1 {
		return 0, c.errf("unexpected end")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// readU32LE reads a fixed-width 4-byte little-endian integer, used for the
// module header's magic and version fields and for f32/f64 constant bits.
func (c *cursor) readU32LE() (uint32, error) {
	if c.remaining() < 4 {
		return 0, c.errf("unexpected end")
	}
	v := uint32(c.buf[c.pos]) | uint32(c.buf[c.pos+1])<<8 |
		uint32(c.buf[c.pos+2])<<16 | uint32(c.buf[c.pos+3])<<24
	c.pos += 4
	return v, nil
}

func (c *cursor) readULEB32() (uint32, error) {
	v, n, err := leb128.Uint32(c.buf[c.pos:])
	if err != nil {
		return 0, c.wrapLEBErr(err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readULEB64() (uint64, error) {
	v, n, err := leb128.Uint64(c.buf[c.pos:])
	if err != nil {
		return 0, c.wrapLEBErr(err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readSLEB32() (int32, error) {
	v, n, err := leb128.Int32(c.buf[c.pos:])
	if err != nil {
		return 0, c.wrapLEBErr(err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readSLEB64() (int64, error) {
	v, n, err := leb128.Int64(c.buf[c.pos:])
	if err != nil {
		return 0, c.wrapLEBErr(err)
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) wrapLEBErr(err error) *wasm.SectionError {
	if err == leb128.ErrUnexpectedEnd {
		return c.errf("unexpected end")
	}
	return wasm.WrapSectionError(c.sectionID, "integer representation too long", err)
}

// readSlice returns the next n bytes as a sub-slice of the cursor's
// underlying buffer, without copying.
func (c *cursor) readSlice(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, c.errf("unexpected end")
	}
	s := c.buf[c.pos : c.pos+n]
	c.pos += n
	return s, nil
}

// readName reads a length-prefixed UTF-8 string, validating well-formedness
// the way the teacher's readName does.
func (c *cursor) readName() (string, error) {
	n, err := c.readULEB32()
	if err != nil {
		return "", err
	}
	b, err := c.readSlice(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", c.errf("invalid UTF-8 encoding")
	}
	return string(b), nil
}

// readValueType reads a single value-type byte and validates it is one of
// the concrete (non-ANY, non-VOID) types.
func (c *cursor) readValueType() (wasm.ValueType, error) {
	b, err := c.readU8()
	if err != nil {
		return 0, err
	}
	vt := wasm.ValueType(b)
	switch vt {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeFuncref, wasm.ValueTypeExternref, wasm.ValueTypeV128:
		return vt, nil
	default:
		return 0, c.errf("invalid value type")
	}
}
