// Package binary implements spec.md §4.1's Binary Decoder and §4.2's
// Section Dispatcher: it turns a raw Wasm byte slice into a *wasm.Module
// skeleton, populating every section's in-memory vectors without
// evaluating constant expressions or validating opcode sequences — those
// are the instantiate and validator packages' jobs respectively.
package binary

import (
	"fmt"

	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/wasm"
)

const (
	sectionCustom = 0
	sectionType   = 1
	sectionImport = 2
	sectionFunction = 3
	sectionTable  = 4
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionStart  = 8
	sectionElement = 9
	sectionCode   = 10
	sectionData   = 11
	sectionDataCount = 12
)

// sectionOrder maps each non-custom section id to its ordinal position in
// the canonical binary layout: type, import, function, table, memory,
// global, export, start, element, datacount, code, data. DataCount sits
// between element and code in the actual byte stream even though its id
// (12) is numerically larger than code's (10) or data's (11), so the
// ordering check below must compare ordinals, not raw id bytes.
var sectionOrder = map[byte]int{
	sectionType:      1,
	sectionImport:    2,
	sectionFunction:  3,
	sectionTable:     4,
	sectionMemory:    5,
	sectionGlobal:    6,
	sectionExport:    7,
	sectionStart:     8,
	sectionElement:   9,
	sectionDataCount: 10,
	sectionCode:      11,
	sectionData:      12,
}

// Decode parses b as a Wasm 1.0 binary module, honoring the optional
// proposals enabled in ctx.Features. It returns a *wasm.Module with every
// section's vectors populated; function bodies are unvalidated (no opcode
// rewrites, no branch table) until passed to validator.Validate. The first
// error Decode encounters, if any, is also recorded on ctx via ctx.Fail,
// mirroring the first-occurrence-wins error buffer spec.md §9 describes.
func Decode(b []byte, ctx *runtimectx.Context) (module *wasm.Module, err error) {
	defer func() {
		if err != nil {
			ctx.Fail(err)
		}
	}()

	c := newCursor(b)

	magic, err := c.readU32LE()
	if err != nil {
		return nil, wasm.WrapSectionError(-1, "magic header not detected", err)
	}
	if magic != wasm.Magic {
		return nil, wasm.NewSectionError(-1, "magic header not detected")
	}

	version, err := c.readU32LE()
	if err != nil {
		return nil, wasm.WrapSectionError(-1, "unknown binary version", err)
	}
	if version != wasm.Version {
		return nil, wasm.NewSectionError(-1, "unknown binary version")
	}

	m := &wasm.Module{
		Version: version,
		Exports: map[string]wasm.Export{},
	}
	d := &decoder{module: m, features: ctx.Features}

	lastOrdinal := 0
	for !c.eof() {
		id, err := c.readU8()
		if err != nil {
			return nil, err
		}
		size, err := c.readULEB32()
		if err != nil {
			return nil, err
		}
		body, err := c.readSlice(int(size))
		if err != nil {
			return nil, err
		}

		if id != sectionCustom {
			ord, known := sectionOrder[id]
			if !known {
				return nil, wasm.NewSectionError(int(id), "malformed section id")
			}
			if ord <= lastOrdinal {
				return nil, wasm.NewSectionError(int(id), "junk after last section")
			}
			lastOrdinal = ord
		}

		sc := newCursor(body)
		sc.sectionID = int(id)

		if err := d.dispatch(id, sc); err != nil {
			return nil, err
		}
		if !sc.eof() {
			return nil, wasm.NewSectionError(int(id), "section size mismatch")
		}
	}

	return m, nil
}

type decoder struct {
	module   *wasm.Module
	features runtimectx.Features
}

func (d *decoder) dispatch(id byte, c *cursor) error {
	switch id {
	case sectionCustom:
		return nil // skipped past its declared length by the caller's readSlice
	case sectionType:
		return d.decodeTypeSection(c)
	case sectionImport:
		return d.decodeImportSection(c)
	case sectionFunction:
		return d.decodeFunctionSection(c)
	case sectionTable:
		return d.decodeTableSection(c)
	case sectionMemory:
		return d.decodeMemorySection(c)
	case sectionGlobal:
		return d.decodeGlobalSection(c)
	case sectionExport:
		return d.decodeExportSection(c)
	case sectionStart:
		return d.decodeStartSection(c)
	case sectionElement:
		return d.decodeElementSection(c)
	case sectionCode:
		return d.decodeCodeSection(c)
	case sectionData:
		return d.decodeDataSection(c)
	case sectionDataCount:
		return d.decodeDataCountSection(c)
	default:
		return wasm.NewSectionError(int(id), fmt.Sprintf("malformed section id %d", id))
	}
}
