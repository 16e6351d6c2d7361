package leb128

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		want  uint32
		n     uint32
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"one byte", []byte{0x7f}, 127, 1},
		{"three bytes", []byte{0xe5, 0x8e, 0x26}, 624485, 3},
		{"max uint32", []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, n, err := Uint32(c.bytes)
			require.NoError(t, err)
			require.Equal(t, c.want, got)
			require.Equal(t, c.n, n)
		})
	}
}

func TestInt32Negative(t *testing.T) {
	// -1 encoded in LEB128
	got, n, err := Int32([]byte{0x7f})
	require.NoError(t, err)
	require.Equal(t, int32(-1), got)
	require.Equal(t, uint32(1), n)

	// -624485
	got, n, err = Int32([]byte{0x9b, 0xf1, 0x59})
	require.NoError(t, err)
	require.Equal(t, int32(-624485), got)
	require.Equal(t, uint32(3), n)
}

func TestUint32OverflowByteCount(t *testing.T) {
	// 6 encoded bytes for a 32-bit value is too long.
	_, _, err := Uint32([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestUint32OverflowUnusedBits(t *testing.T) {
	// Final byte sets a bit beyond the 32-bit width.
	_, _, err := Uint32([]byte{0xff, 0xff, 0xff, 0xff, 0x1f})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestUnexpectedEnd(t *testing.T) {
	_, _, err := Uint32([]byte{0x80})
	require.ErrorIs(t, err, ErrUnexpectedEnd)
}

func TestUint64RoundTrip(t *testing.T) {
	got, n, err := Uint64([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01})
	require.NoError(t, err)
	require.Equal(t, uint64(1<<64-1), got)
	require.Equal(t, uint32(10), n)
}

func TestInt64Negative(t *testing.T) {
	got, _, err := Int64([]byte{0x7f})
	require.NoError(t, err)
	require.Equal(t, int64(-1), got)
}
