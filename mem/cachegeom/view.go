package cachegeom

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unsafe"
)

// Word is an unsigned integer type a Geometry can be viewed at.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ErrDoesNotFit is wrapped by errors for constants out of a word's range.
var ErrDoesNotFit = errors.New("constant does not fit the word width")

// WidthError lists the constants that cannot be represented at Width bits.
type WidthError struct {
	Width  int
	Fields []Field
}

func (e *WidthError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.String()
	}

	return fmt.Sprintf("%s do not fit %d bits",
		strings.Join(names, ", "), e.Width)
}

func (e *WidthError) Unwrap() error {
	return ErrDoesNotFit
}

// View is a Geometry re-expressed at the word type W. The values are the
// same as the Geometry it was narrowed from.
type View[W Word] struct {
	LinesPerSet W
	BlockBytes  W
	CacheBytes  W
	AddressBits W

	Sets       W
	IndexBits  W
	OffsetBits W
	TagBits    W

	OffsetMask W
	IndexMask  W
	TagMask    W

	MaxOffset W
	MaxIndex  W
	MaxTag    W
}

// WidthOf returns the number of bits in W.
func WidthOf[W Word]() int {
	var w W
	return int(unsafe.Sizeof(w)) * 8
}

// Fits reports whether v can be represented as a W.
func Fits[W Word](v uint64) bool {
	return v <= uint64(^W(0))
}

// Narrow re-expresses g at the word type W. It fails with a *WidthError if
// any constant exceeds W.
func Narrow[W Word](g Geometry) (View[W], error) {
	var unfit []Field
	for _, f := range AllFields() {
		if !Fits[W](g.Value(f)) {
			unfit = append(unfit, f)
		}
	}

	if len(unfit) > 0 {
		return View[W]{}, &WidthError{Width: WidthOf[W](), Fields: unfit}
	}

	return View[W]{
		LinesPerSet: W(g.LinesPerSet),
		BlockBytes:  W(g.BlockBytes),
		CacheBytes:  W(g.CacheBytes),
		AddressBits: W(g.AddressBits),
		Sets:        W(g.Sets),
		IndexBits:   W(g.IndexBits),
		OffsetBits:  W(g.OffsetBits),
		TagBits:     W(g.TagBits),
		OffsetMask:  W(g.OffsetMask),
		IndexMask:   W(g.IndexMask),
		TagMask:     W(g.TagMask),
		MaxOffset:   W(g.MaxOffset),
		MaxIndex:    W(g.MaxIndex),
		MaxTag:      W(g.MaxTag),
	}, nil
}

// MustNarrow is Narrow for geometries known to fit W. It panics otherwise.
func MustNarrow[W Word](g Geometry) View[W] {
	v, err := Narrow[W](g)
	if err != nil {
		log.Panic(err)
	}

	return v
}

// CastField returns a single constant of g as a W.
func CastField[W Word](g Geometry, f Field) (W, error) {
	v := g.Value(f)
	if !Fits[W](v) {
		return 0, &WidthError{Width: WidthOf[W](), Fields: []Field{f}}
	}

	return W(v), nil
}

// Widen reads the view back at 64 bits.
func (v View[W]) Widen() Geometry {
	var g Geometry
	for _, f := range AllFields() {
		g.set(f, uint64(v.Value(f)))
	}

	return g
}

// Value returns the constant named by f.
func (v View[W]) Value(f Field) W {
	switch f {
	case FieldLinesPerSet:
		return v.LinesPerSet
	case FieldBlockBytes:
		return v.BlockBytes
	case FieldCacheBytes:
		return v.CacheBytes
	case FieldAddressBits:
		return v.AddressBits
	case FieldSets:
		return v.Sets
	case FieldIndexBits:
		return v.IndexBits
	case FieldOffsetBits:
		return v.OffsetBits
	case FieldTagBits:
		return v.TagBits
	case FieldOffsetMask:
		return v.OffsetMask
	case FieldIndexMask:
		return v.IndexMask
	case FieldTagMask:
		return v.TagMask
	case FieldMaxOffset:
		return v.MaxOffset
	case FieldMaxIndex:
		return v.MaxIndex
	case FieldMaxTag:
		return v.MaxTag
	default:
		log.Panicf("unknown geometry field %d", int(f))
	}

	return 0
}

// DeriveAt derives the geometry of spec with arithmetic done in W. It
// refuses specs whose constants do not all fit W, since those would wrap.
func DeriveAt[W Word](spec Spec) (View[W], error) {
	g, err := Derive(spec)
	if err != nil {
		return View[W]{}, err
	}

	if _, err := Narrow[W](g); err != nil {
		return View[W]{}, err
	}

	v := View[W]{
		LinesPerSet: W(spec.LinesPerSet),
		BlockBytes:  W(spec.BlockBytes),
		CacheBytes:  W(spec.CacheBytes),
		AddressBits: W(spec.AddressBits),
	}

	v.Sets = v.CacheBytes / (v.LinesPerSet * v.BlockBytes)
	v.IndexBits = log2At(v.Sets, spec.Log2)
	v.OffsetBits = log2At(v.BlockBytes, spec.Log2)
	v.TagBits = v.AddressBits - (v.IndexBits + v.OffsetBits)

	v.OffsetMask = lowMaskAt[W](v.OffsetBits)
	v.IndexMask = lowMaskAt[W](v.OffsetBits+v.IndexBits) &^ v.OffsetMask
	v.TagMask = lowMaskAt[W](v.OffsetBits+v.IndexBits+v.TagBits) &^
		(v.OffsetMask | v.IndexMask)

	v.MaxOffset = v.OffsetMask
	v.MaxIndex = v.IndexMask >> v.OffsetBits
	v.MaxTag = v.TagMask >> (v.OffsetBits + v.IndexBits)

	return v, nil
}

func log2At[W Word](n W, mode Log2Mode) W {
	if mode == Log2Legacy {
		if n < 2 {
			return 1
		}

		return 1 + log2At(n/2, mode)
	}

	width := W(WidthOf[W]())

	k := W(0)
	for k < width && W(1)<<k < n {
		k++
	}

	return k
}

func lowMaskAt[W Word](n W) W {
	if int(n) >= WidthOf[W]() {
		return ^W(0)
	}

	return W(1)<<n - 1
}

// Widths lists the word widths CheckWidth accepts.
var Widths = []int{8, 16, 32, 64}

// ErrUnsupportedWidth is returned for widths that have no Word type.
var ErrUnsupportedWidth = errors.New("unsupported word width")

// CheckWidth is Narrow for a width chosen at run time. It returns nil when g
// can be viewed at width bits.
func CheckWidth(g Geometry, width int) error {
	var err error

	switch width {
	case 8:
		_, err = Narrow[uint8](g)
	case 16:
		_, err = Narrow[uint16](g)
	case 32:
		_, err = Narrow[uint32](g)
	case 64:
		_, err = Narrow[uint64](g)
	default:
		err = fmt.Errorf("%d bits: %w", width, ErrUnsupportedWidth)
	}

	return err
}

// FittingFields returns the fields of g representable at width bits, in
// declaration order.
func FittingFields(g Geometry, width int) []Field {
	var fields []Field
	for _, f := range AllFields() {
		if width >= 64 || g.Value(f) < uint64(1)<<uint(width) {
			fields = append(fields, f)
		}
	}

	return fields
}
