package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vertexdlt/wrcore/runtimectx"
)

func TestParseFeaturesDefaultsToAll(t *testing.T) {
	f, err := parseFeatures(nil)
	require.NoError(t, err)
	require.Equal(t, runtimectx.AllFeatures, f)
}

func TestParseFeaturesRejectsUnknown(t *testing.T) {
	_, err := parseFeatures([]string{"not-a-feature"})
	require.Error(t, err)
}

func TestParseFeaturesUnionsKnownNames(t *testing.T) {
	f, err := parseFeatures([]string{"tail-call", "bulk-memory"})
	require.NoError(t, err)
	require.True(t, f.Has(runtimectx.FeatureTailCall))
	require.True(t, f.Has(runtimectx.FeatureBulkMemory))
	require.False(t, f.Has(runtimectx.FeatureReferenceTypes))
}

// writeAddModule assembles the same minimal (i32,i32)->i32 add module used
// in validator's wagon oracle tests, to a temp file.
func writeAddModule(t *testing.T) string {
	t.Helper()
	var b bytes.Buffer
	b.Write([]byte{0x00, 0x61, 0x73, 0x6d})
	b.Write([]byte{0x01, 0x00, 0x00, 0x00})

	writeSec := func(id byte, content []byte) {
		b.WriteByte(id)
		b.WriteByte(byte(len(content)))
		b.Write(content)
	}
	writeSec(0x01, []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})
	writeSec(0x03, []byte{0x01, 0x00})
	code := []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}
	body := append([]byte{0x00}, code...)
	body = append([]byte{byte(len(body))}, body...)
	writeSec(0x0a, append([]byte{0x01}, body...))

	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestRunValidateAcceptsWellFormedModule(t *testing.T) {
	path := writeAddModule(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	err := runValidate(validateCmd, []string{path})
	require.NoError(t, err)
	require.Contains(t, out.String(), "PASS")
}

func TestRunInspectReportsLayout(t *testing.T) {
	path := writeAddModule(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	err := runInspect(inspectCmd, []string{path})
	require.NoError(t, err)
	require.Contains(t, out.String(), "instantiated successfully")
}
