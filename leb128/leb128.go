// Package leb128 decodes the variable-length integer encoding used throughout
// the Wasm binary format.
// https://webassembly.github.io/spec/core/binary/values.html#integers
package leb128

import "errors"

// ErrOverflow is returned when an encoded integer uses more bytes than its
// target width allows (more than 5 bytes for a 32-bit value, or 10 bytes for
// a 64-bit value).
var ErrOverflow = errors.New("leb128: integer representation too long")

// ErrUnexpectedEnd is returned when the byte slice runs out before a
// continuation bit sequence terminates.
var ErrUnexpectedEnd = errors.New("leb128: unexpected end of input")

// maxBytes returns the maximum number of encoded bytes for an n-bit integer:
// ceil(n/7).
func maxBytes(n uint32) uint32 {
	return (n + 6) / 7
}

// Uint32 decodes an unsigned LEB128 integer of at most 32 bits from b,
// returning the value and the number of bytes consumed.
func Uint32(b []byte) (uint32, uint32, error) {
	v, n, err := readUnsigned(b, 32)
	return uint32(v), n, err
}

// Uint64 decodes an unsigned LEB128 integer of at most 64 bits from b.
func Uint64(b []byte) (uint64, uint32, error) {
	v, n, err := readUnsigned(b, 64)
	return v, n, err
}

// Int32 decodes a signed LEB128 integer of at most 32 bits from b.
func Int32(b []byte) (int32, uint32, error) {
	v, n, err := readSigned(b, 32)
	return int32(v), n, err
}

// Int64 decodes a signed LEB128 integer of at most 64 bits from b.
func Int64(b []byte) (int64, uint32, error) {
	return readSigned(b, 64)
}

func readUnsigned(b []byte, width uint32) (uint64, uint32, error) {
	var (
		result uint64
		shift  uint32
		n      uint32
		limit  = maxBytes(width)
	)
	for {
		if int(n) >= len(b) {
			return 0, n, ErrUnexpectedEnd
		}
		cur := b[n]
		n++
		if n > limit {
			return 0, n, ErrOverflow
		}
		chunk := uint64(cur & 0x7f)
		if n == limit {
			// The final byte's significant bits must fit within width; any
			// higher bit set is a malformed encoding.
			maxChunk := byte(1<<(width-(limit-1)*7)) - 1
			if cur&0x7f&^maxChunk != 0 {
				return 0, n, ErrOverflow
			}
		}
		result |= chunk << shift
		shift += 7
		if cur&0x80 == 0 {
			break
		}
	}
	return result, n, nil
}

func readSigned(b []byte, width uint32) (int64, uint32, error) {
	var (
		result int64
		shift  uint32
		n      uint32
		limit  = maxBytes(width)
		cur    byte
	)
	for {
		if int(n) >= len(b) {
			return 0, n, ErrUnexpectedEnd
		}
		cur = b[n]
		n++
		if n > limit {
			return 0, n, ErrOverflow
		}
		if n == limit {
			// The final byte's bits above width must all repeat the sign bit.
			used := width - (limit-1)*7
			rest := (cur & 0x7f) >> (used - 1)
			if rest != 0 && rest != 0x7f>>(used-1) {
				return 0, n, ErrOverflow
			}
		}
		result |= int64(cur&0x7f) << shift
		shift += 7
		if cur&0x80 == 0 {
			break
		}
	}
	// Sign-extend if the sign bit of the last significant byte was set and we
	// have not yet filled the full width.
	if shift < 64 && cur&0x40 != 0 {
		result |= -1 << shift
	}
	if width < 64 {
		// Truncate to the requested width, then sign-extend from there so
		// callers get a correctly-signed int32/int64 regardless of width.
		mask := int64(1)<<width - 1
		result &= mask
		if result&(int64(1)<<(width-1)) != 0 {
			result |= ^mask
		}
	}
	return result, n, nil
}
