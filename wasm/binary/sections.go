package binary

import (
	"fmt"

	"github.com/vertexdlt/wrcore/wasm"
)

// decodeTypeSection reads the vector of function signatures (spec.md §4.3,
// "Type Loader").
func (d *decoder) decodeTypeSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	d.module.Types = make([]*wasm.FunctionType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := c.readU8()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return c.errf("integer too large: function type form")
		}
		params, err := c.readValueTypeVec()
		if err != nil {
			return err
		}
		results, err := c.readValueTypeVec()
		if err != nil {
			return err
		}
		d.module.Types = append(d.module.Types, &wasm.FunctionType{Params: params, Results: results})
	}
	return nil
}

func (c *cursor) readValueTypeVec() ([]wasm.ValueType, error) {
	n, err := c.readULEB32()
	if err != nil {
		return nil, err
	}
	vt := make([]wasm.ValueType, n)
	for i := range vt {
		v, err := c.readValueType()
		if err != nil {
			return nil, err
		}
		vt[i] = v
	}
	return vt, nil
}

func (c *cursor) readLimits() (wasm.Limits, error) {
	flag, err := c.readU8()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := c.readULEB32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	if flag == 1 {
		max, err := c.readULEB32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = max
		l.HasMax = true
	} else if flag != 0 {
		return wasm.Limits{}, c.errf("integer too large: limits flag")
	}
	return l, nil
}

func (c *cursor) readTableType() (wasm.Table, error) {
	elemType, err := c.readU8()
	if err != nil {
		return wasm.Table{}, err
	}
	if elemType != byte(wasm.ValueTypeFuncref) && elemType != byte(wasm.ValueTypeExternref) {
		return wasm.Table{}, c.errf("unknown table element type")
	}
	limits, err := c.readLimits()
	if err != nil {
		return wasm.Table{}, err
	}
	return wasm.Table{ElemType: wasm.ValueType(elemType), Limits: limits}, nil
}

func (c *cursor) readGlobalType() (wasm.GlobalType, error) {
	vt, err := c.readValueType()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mut, err := c.readU8()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	if mut != byte(wasm.Immutable) && mut != byte(wasm.Mutable) {
		return wasm.GlobalType{}, c.errf("malformed mutability")
	}
	return wasm.GlobalType{ValueType: vt, Mutability: wasm.Mutability(mut)}, nil
}

// decodeImportSection reads the import vector, splitting entries into the
// four kind-specific fields of wasm.Import and bumping each namespace's
// ImportedXCount (spec.md §4.3, "Import/.../Global Loaders").
func (d *decoder) decodeImportSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	for i := uint32(0); i < n; i++ {
		modName, err := c.readName()
		if err != nil {
			return err
		}
		field, err := c.readName()
		if err != nil {
			return err
		}
		kind, err := c.readU8()
		if err != nil {
			return err
		}
		imp := wasm.Import{Module: modName, Name: field, Kind: kind}
		switch kind {
		case wasm.ExternalKindFunc:
			idx, err := c.readULEB32()
			if err != nil {
				return err
			}
			if int(idx) >= len(m.Types) {
				return c.errf("unknown type")
			}
			imp.FuncTypeIndex = idx
			m.FunctionIndexSpace = append(m.FunctionIndexSpace, &wasm.Function{
				Index:     uint32(len(m.FunctionIndexSpace)),
				TypeIndex: idx,
				Type:      m.Types[idx],
			})
			m.ImportedFuncCount++
		case wasm.ExternalKindTable:
			t, err := c.readTableType()
			if err != nil {
				return err
			}
			imp.Table = &t
			m.TableIndexSpace = append(m.TableIndexSpace, &t)
			m.ImportedTableCount++
		case wasm.ExternalKindMemory:
			lim, err := c.readLimits()
			if err != nil {
				return err
			}
			mem := &wasm.Memory{Limits: lim, BytesPerPage: wasm.DefaultBytesPerPage}
			imp.Memory = mem
			m.MemoryIndexSpace = append(m.MemoryIndexSpace, mem)
			m.ImportedMemoryCount++
		case wasm.ExternalKindGlobal:
			gt, err := c.readGlobalType()
			if err != nil {
				return err
			}
			imp.GlobalType = &gt
			m.GlobalIndexSpace = append(m.GlobalIndexSpace, &wasm.Global{Type: gt})
			m.ImportedGlobalCount++
		default:
			return c.errf(fmt.Sprintf("malformed import kind 0x%x", kind))
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

// decodeFunctionSection reads the vector of type indices for module-defined
// functions, appending placeholder *wasm.Function entries (bodies are
// filled in by decodeCodeSection) to the function index space.
func (d *decoder) decodeFunctionSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	for i := uint32(0); i < n; i++ {
		typeIdx, err := c.readULEB32()
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(m.Types) {
			return c.errf("unknown type")
		}
		m.FunctionIndexSpace = append(m.FunctionIndexSpace, &wasm.Function{
			Index:     uint32(len(m.FunctionIndexSpace)),
			TypeIndex: typeIdx,
			Type:      m.Types[typeIdx],
		})
	}
	return nil
}

func (d *decoder) decodeTableSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		t, err := c.readTableType()
		if err != nil {
			return err
		}
		d.module.TableIndexSpace = append(d.module.TableIndexSpace, &t)
	}
	return nil
}

func (d *decoder) decodeMemorySection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		lim, err := c.readLimits()
		if err != nil {
			return err
		}
		d.module.MemoryIndexSpace = append(d.module.MemoryIndexSpace, &wasm.Memory{
			Limits:       lim,
			BytesPerPage: wasm.DefaultBytesPerPage,
		})
	}
	return nil
}

// decodeGlobalSection reads declared globals. DataOffset is left zero here;
// the instantiator assigns it cumulatively across imported and defined
// globals (spec.md §4.5).
func (d *decoder) decodeGlobalSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := c.readGlobalType()
		if err != nil {
			return err
		}
		init, err := c.readConstExpr()
		if err != nil {
			return err
		}
		if init.Kind == wasm.ConstExprGlobalGet && int(init.GlobalIndex) >= len(d.module.GlobalIndexSpace) {
			return c.errf("unknown global")
		}
		d.module.GlobalIndexSpace = append(d.module.GlobalIndexSpace, &wasm.Global{Type: gt, Init: init})
	}
	return nil
}

func (d *decoder) decodeExportSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	for i := uint32(0); i < n; i++ {
		name, err := c.readName()
		if err != nil {
			return err
		}
		kind, err := c.readU8()
		if err != nil {
			return err
		}
		idx, err := c.readULEB32()
		if err != nil {
			return err
		}
		switch kind {
		case wasm.ExternalKindFunc:
			if int(idx) >= len(m.FunctionIndexSpace) {
				return c.errf("unknown function")
			}
		case wasm.ExternalKindTable:
			if int(idx) >= len(m.TableIndexSpace) {
				return c.errf("unknown table")
			}
		case wasm.ExternalKindMemory:
			if int(idx) >= len(m.MemoryIndexSpace) {
				return c.errf("unknown memory")
			}
		case wasm.ExternalKindGlobal:
			if int(idx) >= len(m.GlobalIndexSpace) {
				return c.errf("unknown global")
			}
		default:
			return c.errf(fmt.Sprintf("malformed export kind 0x%x", kind))
		}
		if _, dup := m.Exports[name]; dup {
			return c.errf("duplicate export name")
		}
		m.Exports[name] = wasm.Export{Name: name, Kind: kind, Index: idx}
	}
	return nil
}

func (d *decoder) decodeStartSection(c *cursor) error {
	idx, err := c.readULEB32()
	if err != nil {
		return err
	}
	if int(idx) >= len(d.module.FunctionIndexSpace) {
		return c.errf("unknown function")
	}
	d.module.StartFuncIndex = idx
	d.module.HasStartFunc = true
	return nil
}

// decodeElementSection reads element segments (spec.md §4.3,
// "Data/Element Loaders"): captures offset expression and function indices,
// does not apply them to any table.
func (d *decoder) decodeElementSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	for i := uint32(0); i < n; i++ {
		tableIdx, err := c.readULEB32()
		if err != nil {
			return err
		}
		if int(tableIdx) >= len(m.TableIndexSpace) {
			return c.errf("unknown table")
		}
		offset, err := c.readConstExpr()
		if err != nil {
			return err
		}
		count, err := c.readULEB32()
		if err != nil {
			return err
		}
		funcs := make([]uint32, count)
		for j := range funcs {
			fi, err := c.readULEB32()
			if err != nil {
				return err
			}
			if int(fi) >= len(m.FunctionIndexSpace) {
				return c.errf("unknown function")
			}
			funcs[j] = fi
		}
		m.Elements = append(m.Elements, wasm.Element{TableIndex: tableIdx, Offset: offset, FuncIndices: funcs})
	}
	return nil
}

// decodeCodeSection reads each function body, splitting it into its
// locals-declaration and opcode stream (spec.md §4.3, "Code Loader"). The
// opcode slice returned is a sub-slice of the cursor's underlying buffer —
// callers must keep that buffer exclusively held until validation finishes
// (spec.md §5, §9).
func (d *decoder) decodeCodeSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	if int(n) != len(m.FunctionIndexSpace)-int(m.ImportedFuncCount) {
		return c.errf("function and code section have inconsistent lengths")
	}
	for i := uint32(0); i < n; i++ {
		bodySize, err := c.readULEB32()
		if err != nil {
			return err
		}
		body, err := c.readSlice(int(bodySize))
		if err != nil {
			return err
		}
		bc := newCursor(body)
		bc.sectionID = sectionCode

		localGroupCount, err := bc.readULEB32()
		if err != nil {
			return err
		}
		fn := m.FunctionIndexSpace[m.ImportedFuncCount+i]
		fn.LocalTypes = append([]wasm.ValueType{}, fn.Type.Params...)
		for g := uint32(0); g < localGroupCount; g++ {
			count, err := bc.readULEB32()
			if err != nil {
				return err
			}
			vt, err := bc.readValueType()
			if err != nil {
				return err
			}
			for k := uint32(0); k < count; k++ {
				fn.LocalTypes = append(fn.LocalTypes, vt)
			}
		}
		fn.LocalOffsets = make([]uint32, len(fn.LocalTypes))
		var off uint32
		for idx, vt := range fn.LocalTypes {
			fn.LocalOffsets[idx] = off
			off += uint32(vt.CellCount())
		}
		if bc.remaining() == 0 {
			return c.errf("function body must end with END opcode")
		}
		fn.Body = bc.buf[bc.pos:]
	}
	return nil
}

// decodeDataSection reads data segments, capturing offset expression and
// raw bytes without copying them into any memory (spec.md §4.5, final
// paragraph: applied by the execution engine on start).
func (d *decoder) decodeDataSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	m := d.module
	if m.HasDataCount && n != m.DataCount {
		return c.errf("data count and data section have inconsistent lengths")
	}
	for i := uint32(0); i < n; i++ {
		memIdx, err := c.readULEB32()
		if err != nil {
			return err
		}
		if int(memIdx) >= len(m.MemoryIndexSpace) {
			return c.errf("unknown memory")
		}
		offset, err := c.readConstExpr()
		if err != nil {
			return err
		}
		size, err := c.readULEB32()
		if err != nil {
			return err
		}
		init, err := c.readSlice(int(size))
		if err != nil {
			return err
		}
		m.DataSegments = append(m.DataSegments, wasm.Data{MemoryIndex: memIdx, Offset: offset, Init: init})
	}
	return nil
}

// decodeDataCountSection reads the optional data-count section, which gates
// validation of memory.init/data.drop (spec.md §4.2).
func (d *decoder) decodeDataCountSection(c *cursor) error {
	n, err := c.readULEB32()
	if err != nil {
		return err
	}
	d.module.DataCount = n
	d.module.HasDataCount = true
	return nil
}
