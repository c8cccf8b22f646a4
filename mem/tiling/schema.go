// Package tiling lays out a fixed list of attribute kinds into cache-block
// sized tiles, one tile per attribute, so that iterating one attribute over
// the rows of an aggregate touches a single cache block.
package tiling

import (
	"errors"
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/cachetile/mem/cachegeom"
)

// Errors returned when building a schema.
var (
	ErrNoAttributes  = errors.New("schema has no attributes")
	ErrNoBlock       = errors.New("geometry has no block size")
	ErrBadGeometry   = errors.New("malformed cache geometry")
	ErrZeroSize      = errors.New("attribute kind has zero size")
	ErrTooLarge      = errors.New("attribute kind larger than a cache block")
	ErrHasPointers   = errors.New("attribute kind contains pointers")
	ErrDuplicateName = errors.New("duplicate attribute name")
	ErrSealed        = errors.New("schema already built")
)

// Kind describes the storage of one attribute.
type Kind struct {
	Name string
	Type reflect.Type

	Size  uintptr
	Align uintptr

	// TileCapacity is the number of elements that fit in one block.
	TileCapacity int

	// TileOffset is where the attribute's tile starts in a Tiled arena.
	TileOffset uintptr

	// RecordOffset is where the attribute sits in an Interleaved record.
	RecordOffset uintptr
}

// A Schema is the sealed, ordered list of attribute kinds of an aggregate,
// together with the layout derived from a cache geometry.
type Schema struct {
	geometry cachegeom.Geometry
	kinds    []Kind
	sealed   bool

	maxElementSize uintptr
	maxAlign       uintptr
	rowCapacity    int
	tiledSize      uintptr

	recordType reflect.Type
	recordSize uintptr
}

// SchemaBuilder collects attribute kinds. Attributes are added with Define.
type SchemaBuilder struct {
	schema *Schema
	names  map[string]bool
	err    error
}

// NewSchemaBuilder starts a schema whose tiles are sized to the blocks of g.
func NewSchemaBuilder(g cachegeom.Geometry) *SchemaBuilder {
	return &SchemaBuilder{
		schema: &Schema{geometry: g},
		names:  make(map[string]bool),
	}
}

// Define appends an attribute of kind T and returns the handle used to
// access it. Errors are reported by Build.
func Define[T any](b *SchemaBuilder, name string) Attribute[T] {
	index := b.define(name, reflect.TypeFor[T]())

	return Attribute[T]{schema: b.schema, index: index}
}

func (b *SchemaBuilder) define(name string, t reflect.Type) int {
	s := b.schema
	index := len(s.kinds)

	if name == "" {
		name = fmt.Sprintf("attr%d", index)
	}

	if b.err != nil {
		return index
	}

	switch {
	case s.sealed:
		b.err = fmt.Errorf("defining %q: %w", name, ErrSealed)
	case b.names[name]:
		b.err = fmt.Errorf("%q: %w", name, ErrDuplicateName)
	case t.Size() == 0:
		b.err = fmt.Errorf("%q of type %s: %w", name, t, ErrZeroSize)
	case uint64(t.Size()) > s.geometry.BlockBytes:
		b.err = fmt.Errorf("%q of type %s is %d bytes, block is %d: %w",
			name, t, t.Size(), s.geometry.BlockBytes, ErrTooLarge)
	case hasPointers(t):
		b.err = fmt.Errorf("%q of type %s: %w", name, t, ErrHasPointers)
	}

	if b.err != nil {
		return index
	}

	b.names[name] = true
	s.kinds = append(s.kinds, Kind{
		Name:  name,
		Type:  t,
		Size:  t.Size(),
		Align: uintptr(t.Align()),
	})

	return index
}

// Build seals the schema and computes its layout.
func (b *SchemaBuilder) Build() (*Schema, error) {
	s := b.schema

	switch {
	case b.err != nil:
		return nil, b.err
	case s.sealed:
		return nil, ErrSealed
	case s.geometry.BlockBytes == 0:
		return nil, ErrNoBlock
	case s.geometry.BlockBytes&(s.geometry.BlockBytes-1) != 0:
		return nil, fmt.Errorf("block of %d bytes is not a power of two: %w",
			s.geometry.BlockBytes, ErrBadGeometry)
	case len(s.kinds) == 0:
		return nil, ErrNoAttributes
	}

	if err := s.geometry.Check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadGeometry, err)
	}

	block := uintptr(s.geometry.BlockBytes)

	s.maxAlign = 1
	for _, k := range s.kinds {
		s.maxElementSize = max(s.maxElementSize, k.Size)
		s.maxAlign = max(s.maxAlign, k.Align)
	}

	s.rowCapacity = int(block / s.maxElementSize)

	offset := uintptr(0)
	fields := make([]reflect.StructField, len(s.kinds))
	for i := range s.kinds {
		k := &s.kinds[i]
		k.TileCapacity = int(block / k.Size)

		offset = alignUp(offset, k.Align)
		k.TileOffset = offset
		offset += uintptr(k.TileCapacity) * k.Size

		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("A%d", i),
			Type: k.Type,
		}
	}

	s.tiledSize = alignUp(offset, block)

	s.recordType = reflect.StructOf(fields)
	s.recordSize = s.recordType.Size()
	for i := range s.kinds {
		s.kinds[i].RecordOffset = s.recordType.Field(i).Offset
	}

	s.sealed = true

	return s, nil
}

// Geometry returns the cache geometry the tiles are sized to.
func (s *Schema) Geometry() cachegeom.Geometry {
	return s.geometry
}

// BlockBytes returns the size of one tile's block.
func (s *Schema) BlockBytes() int {
	return int(s.geometry.BlockBytes)
}

// ColumnCount returns the number of attributes.
func (s *Schema) ColumnCount() int {
	return len(s.kinds)
}

// RowCapacity returns the number of rows addressable in every column. It is
// bounded by the largest attribute.
func (s *Schema) RowCapacity() int {
	return s.rowCapacity
}

// MaxElementSize returns the size of the largest attribute.
func (s *Schema) MaxElementSize() int {
	return int(s.maxElementSize)
}

// Kinds returns a copy of the attribute descriptors, in definition order.
func (s *Schema) Kinds() []Kind {
	kinds := make([]Kind, len(s.kinds))
	copy(kinds, s.kinds)

	return kinds
}

// Kind returns the descriptor of attribute i.
func (s *Schema) Kind(i int) Kind {
	return s.kinds[i]
}

// TiledSize returns the bytes occupied by the tiles of one aggregate,
// rounded up to whole blocks.
func (s *Schema) TiledSize() int {
	return int(s.tiledSize)
}

// RecordSize returns the size of one interleaved record.
func (s *Schema) RecordSize() int {
	return int(s.recordSize)
}

// RecordType returns the struct type of one interleaved record.
func (s *Schema) RecordType() reflect.Type {
	return s.recordType
}

// IndexOf returns the index of the attribute with the given name.
func (s *Schema) IndexOf(name string) (int, bool) {
	for i, k := range s.kinds {
		if k.Name == name {
			return i, true
		}
	}

	return -1, false
}

func (s *Schema) mustBeSealed() {
	if s == nil || !s.sealed {
		log.Panic("schema must be built before use")
	}
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}

		return false
	default:
		return true
	}
}
