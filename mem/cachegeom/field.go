package cachegeom

import "fmt"

// Field names one constant of a Geometry.
type Field int

// The constants of a Geometry, in declaration order.
const (
	FieldLinesPerSet Field = iota
	FieldBlockBytes
	FieldCacheBytes
	FieldAddressBits
	FieldSets
	FieldIndexBits
	FieldOffsetBits
	FieldTagBits
	FieldOffsetMask
	FieldIndexMask
	FieldTagMask
	FieldMaxOffset
	FieldMaxIndex
	FieldMaxTag
	numFields
)

var fieldNames = [numFields]string{
	"LinesPerSet",
	"BlockBytes",
	"CacheBytes",
	"AddressBits",
	"Sets",
	"IndexBits",
	"OffsetBits",
	"TagBits",
	"OffsetMask",
	"IndexMask",
	"TagMask",
	"MaxOffset",
	"MaxIndex",
	"MaxTag",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}

	return fieldNames[f]
}

// AllFields lists every Field in declaration order.
func AllFields() []Field {
	fields := make([]Field, numFields)
	for i := range fields {
		fields[i] = Field(i)
	}

	return fields
}

// ParseField returns the Field with the given name.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}

	return 0, fmt.Errorf("unknown geometry field %q", name)
}
