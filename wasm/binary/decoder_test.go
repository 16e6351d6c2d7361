package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vertexdlt/wrcore/runtimectx"
)

func testCtx() *runtimectx.Context {
	return runtimectx.NewContext(runtimectx.AllFeatures, runtimectx.DefaultConfig())
}

func TestDecodeEmptyModule(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	m, err := Decode(b, testCtx())
	require.NoError(t, err)
	require.Empty(t, m.Types)
	require.Empty(t, m.Imports)
	require.Empty(t, m.FunctionIndexSpace)
	require.Empty(t, m.TableIndexSpace)
	require.Empty(t, m.MemoryIndexSpace)
	require.Empty(t, m.GlobalIndexSpace)
	require.Empty(t, m.Exports)
}

func TestDecodeBadMagic(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x00, 0x01, 0x00, 0x00, 0x00}
	_, err := Decode(b, testCtx())
	require.Error(t, err)
	require.Contains(t, err.Error(), "magic header not detected")
}

func TestDecodeBadVersion(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}
	_, err := Decode(b, testCtx())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown binary version")
}

func TestDecodeAddFunction(t *testing.T) {
	// type section: 1 type, (i32,i32) -> i32
	// function section: 1 func, type 0
	// code section: 1 body: local.get 0; local.get 1; i32.add; end
	b := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // header
		0x01, 0x07, // type section, size 7
		0x01,       // 1 type
		0x60,       // func form
		0x02, 0x7f, 0x7f, // 2 params: i32 i32
		0x01, 0x7f, // 1 result: i32
		0x03, 0x02, // function section, size 2
		0x01, 0x00, // 1 func, type idx 0
		0x0a, 0x09, // code section, size 9
		0x01,       // 1 body
		0x07,       // body size 7
		0x00,       // 0 local groups
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6a,       // i32.add
		0x0b,       // end
	}
	m, err := Decode(b, testCtx())
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Len(t, m.FunctionIndexSpace, 1)
	fn := m.FunctionIndexSpace[0]
	require.Equal(t, []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}, fn.Body)
	require.Len(t, fn.LocalTypes, 2)
}

func TestDecodeSectionSizeMismatch(t *testing.T) {
	b := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x02, // type section, size 2, but only 1 byte of content follows
		0x01,
	}
	_, err := Decode(b, testCtx())
	require.Error(t, err)
}

func TestDecodeDuplicateExport(t *testing.T) {
	b := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00, // 1 type, () -> ()
		0x03, 0x03, 0x02, 0x00, 0x00, // 2 funcs of type 0
		0x07, 0x09, // export section, size 9
		0x02, // 2 exports
		0x01, 'a', 0x00, 0x00, // export "a" func 0
		0x01, 'a', 0x00, 0x01, // export "a" func 1 (duplicate name)
	}
	_, err := Decode(b, testCtx())
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate export")
}
