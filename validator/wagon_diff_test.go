package validator_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	wagonwasm "github.com/go-interpreter/wagon/wasm"
	"github.com/go-interpreter/wagon/validate"

	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/validator"
	"github.com/vertexdlt/wrcore/wasm/binary"
)

// acceptsWrcore runs the full decode+validate pipeline and reports whether
// the module was accepted.
func acceptsWrcore(t *testing.T, raw []byte) bool {
	t.Helper()
	ctx := runtimectx.NewContext(runtimectx.AllFeatures, runtimectx.DefaultConfig())
	m, err := binary.Decode(raw, ctx)
	if err != nil {
		return false
	}
	for _, fn := range m.FunctionIndexSpace[int(m.ImportedFuncCount):] {
		if err := validator.Validate(fn, m, ctx); err != nil {
			return false
		}
	}
	return true
}

// acceptsWagon decodes and verifies the same bytes through wagon, a wholly
// independent Wasm 1.0 implementation, serving as an oracle (spec.md §8's
// cross-validation intent, grounded on wazero's internal/integration_test/vs
// differential-testing idiom).
func acceptsWagon(t *testing.T, raw []byte) bool {
	t.Helper()
	m, err := wagonwasm.ReadModule(bytes.NewReader(raw), nil)
	if err != nil {
		return false
	}
	return validate.VerifyModule(m) == nil
}

func requireSameVerdict(t *testing.T, raw []byte) {
	t.Helper()
	got := acceptsWrcore(t, raw)
	want := acceptsWagon(t, raw)
	require.Equal(t, want, got, "wrcore and wagon disagree on module acceptance")
}

func TestWagonOracleAddFunction(t *testing.T) {
	raw := buildAddFunctionModule()
	requireSameVerdict(t, raw)
}

func TestWagonOracleTypeMismatch(t *testing.T) {
	raw := buildTypeMismatchModule()
	requireSameVerdict(t, raw)
}

// buildAddFunctionModule hand-assembles a minimal single-function module:
// type (i32,i32)->i32, body local.get 0; local.get 1; i32.add; end.
func buildAddFunctionModule() []byte {
	var b bytes.Buffer
	b.Write([]byte{0x00, 0x61, 0x73, 0x6d}) // magic
	b.Write([]byte{0x01, 0x00, 0x00, 0x00}) // version

	// type section: 1 type, (i32,i32)->(i32)
	typeSec := []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f}
	writeSection(&b, 0x01, typeSec)

	// function section: 1 function, type index 0
	funcSec := []byte{0x01, 0x00}
	writeSection(&b, 0x03, funcSec)

	// code section: 1 body, no extra locals, 6-byte code
	code := []byte{
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6a,       // i32.add
		0x0b,       // end
	}
	body := append([]byte{0x00}, code...) // 0 local groups
	body = append([]byte{byte(len(body))}, body...)
	codeSec := append([]byte{0x01}, body...)
	writeSection(&b, 0x0a, codeSec)

	return b.Bytes()
}

// buildTypeMismatchModule is the same shell, but the body mixes i32/i64.
func buildTypeMismatchModule() []byte {
	var b bytes.Buffer
	b.Write([]byte{0x00, 0x61, 0x73, 0x6d})
	b.Write([]byte{0x01, 0x00, 0x00, 0x00})

	typeSec := []byte{0x01, 0x60, 0x00, 0x00} // () -> ()
	writeSection(&b, 0x01, typeSec)

	funcSec := []byte{0x01, 0x00}
	writeSection(&b, 0x03, funcSec)

	code := []byte{
		0x41, 0x01, // i32.const 1
		0x7c,       // i64.add
		0x0b,       // end
	}
	body := append([]byte{0x00}, code...)
	body = append([]byte{byte(len(body))}, body...)
	codeSec := append([]byte{0x01}, body...)
	writeSection(&b, 0x0a, codeSec)

	return b.Bytes()
}

func writeSection(b *bytes.Buffer, id byte, content []byte) {
	b.WriteByte(id)
	b.WriteByte(byte(len(content)))
	b.Write(content)
}
