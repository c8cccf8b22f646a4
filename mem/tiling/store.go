package tiling

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"unsafe"
)

// Errors returned by checked accessors.
var (
	ErrRowOutOfRange       = errors.New("row out of range")
	ErrAttributeOutOfRange = errors.New("attribute out of range")
	ErrSchemaMismatch      = errors.New("store built from another schema")
	ErrTypeMismatch        = errors.New("value type does not match attribute")
)

// A Store holds one aggregate: RowCapacity rows of every attribute of its
// schema. Stores are not safe for concurrent use.
type Store interface {
	Schema() *Schema
	ColumnCount() int
	RowCapacity() int

	// Value returns a copy of attribute attr at row.
	Value(attr, row int) any

	// SetValue stores v, which must have the attribute's type, at row.
	SetValue(attr, row int, v any) error

	// Bytes returns the memory of attribute attr at row.
	Bytes(attr, row int) []byte

	// Reset zeroes every element.
	Reset()

	pointer(attr, row int) unsafe.Pointer
	resolve(o offsets) unsafe.Pointer
}

func checkIndex(s *Schema, attr, row int) error {
	if attr < 0 || attr >= len(s.kinds) {
		return fmt.Errorf("attribute %d of %d: %w",
			attr, len(s.kinds), ErrAttributeOutOfRange)
	}

	if row < 0 || row >= s.rowCapacity {
		return fmt.Errorf("row %d of %d: %w",
			row, s.rowCapacity, ErrRowOutOfRange)
	}

	return nil
}

func mustCheckIndex(s *Schema, attr, row int) {
	if err := checkIndex(s, attr, row); err != nil {
		log.Panic(err)
	}
}

func valueAt(s Store, attr, row int) any {
	mustCheckIndex(s.Schema(), attr, row)

	k := &s.Schema().kinds[attr]

	return reflect.NewAt(k.Type, s.pointer(attr, row)).Elem().Interface()
}

func setValueAt(s Store, attr, row int, v any) error {
	if err := checkIndex(s.Schema(), attr, row); err != nil {
		return err
	}

	k := &s.Schema().kinds[attr]

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != k.Type {
		return fmt.Errorf("%T for %q of type %s: %w",
			v, k.Name, k.Type, ErrTypeMismatch)
	}

	reflect.NewAt(k.Type, s.pointer(attr, row)).Elem().Set(rv)

	return nil
}

func bytesAt(s Store, attr, row int) []byte {
	mustCheckIndex(s.Schema(), attr, row)

	k := &s.Schema().kinds[attr]

	return unsafe.Slice((*byte)(s.pointer(attr, row)), k.Size)
}

// Row returns copies of every attribute at row, in schema order.
func Row(s Store, row int) []any {
	values := make([]any, s.ColumnCount())
	for i := range values {
		values[i] = s.Value(i, row)
	}

	return values
}

// EqualRows reports whether a and b share a schema and hold equal values in
// every attribute of every row below the row capacity.
func EqualRows(a, b Store) bool {
	if a.Schema() != b.Schema() {
		return false
	}

	for row := 0; row < a.RowCapacity(); row++ {
		for attr := 0; attr < a.ColumnCount(); attr++ {
			if !reflect.DeepEqual(a.Value(attr, row), b.Value(attr, row)) {
				return false
			}
		}
	}

	return true
}

// Copy copies every row below the row capacity from src to dst.
func Copy(dst, src Store) error {
	if dst.Schema() != src.Schema() {
		return ErrSchemaMismatch
	}

	for row := 0; row < src.RowCapacity(); row++ {
		for attr := 0; attr < src.ColumnCount(); attr++ {
			copy(dst.Bytes(attr, row), src.Bytes(attr, row))
		}
	}

	return nil
}
