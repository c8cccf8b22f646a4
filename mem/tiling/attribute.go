package tiling

import (
	"fmt"
	"log"
	"unsafe"
)

// An Attribute is the typed handle of one attribute of a schema.
type Attribute[T any] struct {
	schema *Schema
	index  int
}

// Index returns the position of the attribute in its schema.
func (a Attribute[T]) Index() int {
	return a.index
}

// Name returns the name the attribute was defined with.
func (a Attribute[T]) Name() string {
	return a.schema.kinds[a.index].Name
}

// Kind returns the storage descriptor of the attribute.
func (a Attribute[T]) Kind() Kind {
	return a.schema.kinds[a.index]
}

// Schema returns the schema that issued the handle.
func (a Attribute[T]) Schema() *Schema {
	return a.schema
}

// At returns the element of the attribute at row. It panics if row is not
// below the row capacity or if s was built from another schema.
func (a Attribute[T]) At(s Store, row int) *T {
	if s.Schema() != a.schema {
		log.Panicf("attribute %d used with a store of another schema", a.index)
	}

	if uint(row) >= uint(a.schema.rowCapacity) {
		log.Panicf("row %d out of range [0, %d)", row, a.schema.rowCapacity)
	}

	return (*T)(s.pointer(a.index, row))
}

// Get returns a copy of the element at row.
func (a Attribute[T]) Get(s Store, row int) T {
	return *a.At(s, row)
}

// Set stores v at row.
func (a Attribute[T]) Set(s Store, row int, v T) {
	*a.At(s, row) = v
}

// Lookup is At with errors instead of panics.
func (a Attribute[T]) Lookup(s Store, row int) (*T, error) {
	if s.Schema() != a.schema {
		return nil, fmt.Errorf("attribute %d: %w", a.index, ErrSchemaMismatch)
	}

	if row < 0 || row >= a.schema.rowCapacity {
		return nil, fmt.Errorf("row %d of %d: %w",
			row, a.schema.rowCapacity, ErrRowOutOfRange)
	}

	return (*T)(s.pointer(a.index, row)), nil
}

// Column returns the whole tile of the attribute, TileCapacity elements
// long. Elements at or beyond the row capacity are addressable only through
// the tile.
func (a Attribute[T]) Column(t *Tiled) []T {
	if t.schema != a.schema {
		log.Panicf("attribute %d used with a store of another schema", a.index)
	}

	k := &a.schema.kinds[a.index]
	p := (*T)(unsafe.Add(t.base, k.TileOffset))

	return unsafe.Slice(p, k.TileCapacity)
}

// Rows returns the first RowCapacity elements of the attribute's tile.
func (a Attribute[T]) Rows(t *Tiled) []T {
	n := a.schema.rowCapacity
	return a.Column(t)[:n:n]
}

// Cell resolves the attribute at a fixed row. The row is checked once here
// rather than on every access.
func (a Attribute[T]) Cell(row int) Cell[T] {
	if uint(row) >= uint(a.schema.rowCapacity) {
		log.Panicf("row %d out of range [0, %d)", row, a.schema.rowCapacity)
	}

	k := &a.schema.kinds[a.index]

	return Cell[T]{
		schema: a.schema,
		row:    row,
		offsets: offsets{
			tiled:       k.TileOffset + uintptr(row)*k.Size,
			interleaved: uintptr(row)*a.schema.recordSize + k.RecordOffset,
		},
	}
}

// A Cell is an attribute at a fixed row, with its position in both layouts
// resolved ahead of time.
type Cell[T any] struct {
	schema  *Schema
	row     int
	offsets offsets
}

type offsets struct {
	tiled       uintptr
	interleaved uintptr
}

// Row returns the row the cell was resolved at.
func (c Cell[T]) Row() int {
	return c.row
}

// In returns the element of the cell in s.
func (c Cell[T]) In(s Store) *T {
	if s.Schema() != c.schema {
		log.Panicf("cell used with a store of another schema")
	}

	return (*T)(s.resolve(c.offsets))
}
