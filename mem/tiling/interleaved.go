package tiling

import (
	"unsafe"
)

// Interleaved is an aggregate stored as RowCapacity records, each holding
// one element of every attribute. It is the array-of-structs counterpart of
// Tiled and holds the same rows.
type Interleaved struct {
	schema *Schema
	mem    []byte
	base   unsafe.Pointer
}

// NewInterleaved allocates zeroed records for schema s.
func NewInterleaved(s *Schema) *Interleaved {
	s.mustBeSealed()

	align := max(uintptr(s.geometry.BlockBytes), uintptr(s.recordType.Align()))
	mem := alignedBytes(uintptr(s.rowCapacity)*s.recordSize, align)

	return &Interleaved{
		schema: s,
		mem:    mem,
		base:   unsafe.Pointer(unsafe.SliceData(mem)),
	}
}

// Schema returns the schema of the aggregate.
func (r *Interleaved) Schema() *Schema {
	return r.schema
}

// ColumnCount returns the number of attributes.
func (r *Interleaved) ColumnCount() int {
	return len(r.schema.kinds)
}

// RowCapacity returns the number of records.
func (r *Interleaved) RowCapacity() int {
	return r.schema.rowCapacity
}

// Value returns a copy of attribute attr at row.
func (r *Interleaved) Value(attr, row int) any {
	return valueAt(r, attr, row)
}

// SetValue stores v at row of attribute attr.
func (r *Interleaved) SetValue(attr, row int, v any) error {
	return setValueAt(r, attr, row, v)
}

// Bytes returns the memory of attribute attr at row.
func (r *Interleaved) Bytes(attr, row int) []byte {
	return bytesAt(r, attr, row)
}

// Record returns the memory of the record at row.
func (r *Interleaved) Record(row int) []byte {
	start := uintptr(row) * r.schema.recordSize
	return r.mem[start : start+r.schema.recordSize]
}

// Reset zeroes every record.
func (r *Interleaved) Reset() {
	clear(r.mem)
}

// Addr returns the address of the first record.
func (r *Interleaved) Addr() uintptr {
	return uintptr(r.base)
}

func (r *Interleaved) pointer(attr, row int) unsafe.Pointer {
	return unsafe.Add(
		r.base,
		uintptr(row)*r.schema.recordSize+r.schema.kinds[attr].RecordOffset,
	)
}

func (r *Interleaved) resolve(o offsets) unsafe.Pointer {
	return unsafe.Add(r.base, o.interleaved)
}
