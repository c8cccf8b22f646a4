package cachegeom

import (
	"fmt"
	"log"
)

// Geometry holds every addressing constant of a cache, in the canonical
// 64-bit representation.
type Geometry struct {
	LinesPerSet uint64
	BlockBytes  uint64
	CacheBytes  uint64
	AddressBits uint64

	Sets       uint64
	IndexBits  uint64
	OffsetBits uint64
	TagBits    uint64

	OffsetMask uint64
	IndexMask  uint64
	TagMask    uint64

	MaxOffset uint64
	MaxIndex  uint64
	MaxTag    uint64
}

// Derive computes the geometry described by spec.
func Derive(spec Spec) (Geometry, error) {
	if err := spec.Validate(); err != nil {
		return Geometry{}, err
	}

	g := Geometry{
		LinesPerSet: spec.LinesPerSet,
		BlockBytes:  spec.BlockBytes,
		CacheBytes:  spec.CacheBytes,
		AddressBits: spec.AddressBits,
	}

	g.Sets = g.CacheBytes / (g.LinesPerSet * g.BlockBytes)
	g.IndexBits = spec.log2(g.Sets)
	g.OffsetBits = spec.log2(g.BlockBytes)
	g.TagBits = g.AddressBits - (g.IndexBits + g.OffsetBits)

	g.OffsetMask = lowMask(g.OffsetBits)
	g.IndexMask = lowMask(g.OffsetBits+g.IndexBits) &^ g.OffsetMask
	g.TagMask = lowMask(g.OffsetBits+g.IndexBits+g.TagBits) &^
		(g.OffsetMask | g.IndexMask)

	g.MaxOffset = g.OffsetMask
	g.MaxIndex = g.IndexMask >> g.OffsetBits
	g.MaxTag = g.TagMask >> (g.OffsetBits + g.IndexBits)

	return g, nil
}

// MustDerive is Derive for specs known to be valid. It panics otherwise.
func MustDerive(spec Spec) Geometry {
	g, err := Derive(spec)
	if err != nil {
		log.Panicf("cannot derive cache geometry: %v", err)
	}

	return g
}

// Check verifies that the tag, index and offset fields partition the low
// AddressBits bits of an address.
func (g Geometry) Check() error {
	if g.TagBits+g.IndexBits+g.OffsetBits != g.AddressBits {
		return fmt.Errorf("%d tag + %d index + %d offset bits != %d address bits",
			g.TagBits, g.IndexBits, g.OffsetBits, g.AddressBits)
	}

	if g.OffsetMask&g.IndexMask != 0 ||
		g.OffsetMask&g.TagMask != 0 ||
		g.IndexMask&g.TagMask != 0 {
		return fmt.Errorf("masks %#x, %#x, %#x overlap",
			g.OffsetMask, g.IndexMask, g.TagMask)
	}

	union := g.OffsetMask | g.IndexMask | g.TagMask
	if union != lowMask(g.AddressBits) {
		return fmt.Errorf("masks cover %#x, want %#x",
			union, lowMask(g.AddressBits))
	}

	return nil
}

// Value returns the constant named by f.
func (g Geometry) Value(f Field) uint64 {
	switch f {
	case FieldLinesPerSet:
		return g.LinesPerSet
	case FieldBlockBytes:
		return g.BlockBytes
	case FieldCacheBytes:
		return g.CacheBytes
	case FieldAddressBits:
		return g.AddressBits
	case FieldSets:
		return g.Sets
	case FieldIndexBits:
		return g.IndexBits
	case FieldOffsetBits:
		return g.OffsetBits
	case FieldTagBits:
		return g.TagBits
	case FieldOffsetMask:
		return g.OffsetMask
	case FieldIndexMask:
		return g.IndexMask
	case FieldTagMask:
		return g.TagMask
	case FieldMaxOffset:
		return g.MaxOffset
	case FieldMaxIndex:
		return g.MaxIndex
	case FieldMaxTag:
		return g.MaxTag
	default:
		log.Panicf("unknown geometry field %d", int(f))
	}

	return 0
}

func (g *Geometry) set(f Field, v uint64) {
	switch f {
	case FieldLinesPerSet:
		g.LinesPerSet = v
	case FieldBlockBytes:
		g.BlockBytes = v
	case FieldCacheBytes:
		g.CacheBytes = v
	case FieldAddressBits:
		g.AddressBits = v
	case FieldSets:
		g.Sets = v
	case FieldIndexBits:
		g.IndexBits = v
	case FieldOffsetBits:
		g.OffsetBits = v
	case FieldTagBits:
		g.TagBits = v
	case FieldOffsetMask:
		g.OffsetMask = v
	case FieldIndexMask:
		g.IndexMask = v
	case FieldTagMask:
		g.TagMask = v
	case FieldMaxOffset:
		g.MaxOffset = v
	case FieldMaxIndex:
		g.MaxIndex = v
	case FieldMaxTag:
		g.MaxTag = v
	default:
		log.Panicf("unknown geometry field %d", int(f))
	}
}

// Spec returns the parameters the geometry was derived from, counted with
// the default Log2Mode.
func (g Geometry) Spec() Spec {
	return Spec{
		LinesPerSet: g.LinesPerSet,
		BlockBytes:  g.BlockBytes,
		CacheBytes:  g.CacheBytes,
		AddressBits: g.AddressBits,
	}
}
