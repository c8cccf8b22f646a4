package tiling

import (
	"unsafe"
)

// Tiled is an aggregate stored as one block-sized tile per attribute. The
// tiles sit back to back in attribute order, and the first one starts on a
// block boundary.
type Tiled struct {
	schema *Schema
	mem    []byte
	base   unsafe.Pointer
}

// NewTiled allocates a zeroed aggregate of schema s.
func NewTiled(s *Schema) *Tiled {
	s.mustBeSealed()

	align := max(uintptr(s.geometry.BlockBytes), s.maxAlign)
	mem := alignedBytes(s.tiledSize, align)

	return &Tiled{
		schema: s,
		mem:    mem,
		base:   unsafe.Pointer(unsafe.SliceData(mem)),
	}
}

// Schema returns the schema of the aggregate.
func (t *Tiled) Schema() *Schema {
	return t.schema
}

// ColumnCount returns the number of attributes.
func (t *Tiled) ColumnCount() int {
	return len(t.schema.kinds)
}

// RowCapacity returns the number of rows addressable in every attribute.
func (t *Tiled) RowCapacity() int {
	return t.schema.rowCapacity
}

// Value returns a copy of attribute attr at row.
func (t *Tiled) Value(attr, row int) any {
	return valueAt(t, attr, row)
}

// SetValue stores v at row of attribute attr.
func (t *Tiled) SetValue(attr, row int, v any) error {
	return setValueAt(t, attr, row, v)
}

// Bytes returns the memory of attribute attr at row.
func (t *Tiled) Bytes(attr, row int) []byte {
	return bytesAt(t, attr, row)
}

// Tile returns the memory of the whole tile of attribute attr.
func (t *Tiled) Tile(attr int) []byte {
	k := &t.schema.kinds[attr]
	return t.mem[k.TileOffset : k.TileOffset+uintptr(k.TileCapacity)*k.Size]
}

// Reset zeroes every tile.
func (t *Tiled) Reset() {
	clear(t.mem)
}

// Addr returns the address of the first tile.
func (t *Tiled) Addr() uintptr {
	return uintptr(t.base)
}

func (t *Tiled) pointer(attr, row int) unsafe.Pointer {
	k := &t.schema.kinds[attr]
	return unsafe.Add(t.base, k.TileOffset+uintptr(row)*k.Size)
}

func (t *Tiled) resolve(o offsets) unsafe.Pointer {
	return unsafe.Add(t.base, o.tiled)
}
