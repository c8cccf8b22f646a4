package cachegeom

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func expectNativeDerivation[W Word](spec Spec) {
	g := MustDerive(spec)

	narrowed, err := Narrow[W](g)
	Expect(err).NotTo(HaveOccurred())

	native, err := DeriveAt[W](spec)
	Expect(err).NotTo(HaveOccurred())

	Expect(narrowed).To(Equal(native))
	Expect(narrowed.Widen()).To(Equal(g))

	for _, f := range AllFields() {
		Expect(uint64(narrowed.Value(f))).To(Equal(g.Value(f)), f.String())
	}
}

var _ = Describe("View", func() {
	smallSpec := Spec{
		LinesPerSet: 2,
		BlockBytes:  16,
		CacheBytes:  128,
		AddressBits: 8,
	}

	It("should report word widths", func() {
		Expect(WidthOf[uint8]()).To(Equal(8))
		Expect(WidthOf[uint16]()).To(Equal(16))
		Expect(WidthOf[uint32]()).To(Equal(32))
		Expect(WidthOf[uint64]()).To(Equal(64))
	})

	It("should narrow x86-64 to 64 bits", func() {
		expectNativeDerivation[uint64](X8664)
	})

	It("should narrow x86 to 32 and 64 bits", func() {
		expectNativeDerivation[uint32](X86)
		expectNativeDerivation[uint64](X86)
	})

	It("should narrow a small cache to every width", func() {
		expectNativeDerivation[uint8](smallSpec)
		expectNativeDerivation[uint16](smallSpec)
		expectNativeDerivation[uint32](smallSpec)
		expectNativeDerivation[uint64](smallSpec)
	})

	It("should match native derivation in legacy mode", func() {
		expectNativeDerivation[uint8](smallSpec.WithLog2Mode(Log2Legacy))
		expectNativeDerivation[uint32](X86.WithLog2Mode(Log2Legacy))
	})

	It("should match native derivation when the address fills the word", func() {
		spec := Spec{
			LinesPerSet: 1,
			BlockBytes:  4,
			CacheBytes:  64,
			AddressBits: 16,
		}

		expectNativeDerivation[uint16](spec)
	})

	It("should refuse to narrow x86-64 to a byte", func() {
		g := MustDerive(X8664)

		_, err := Narrow[uint8](g)

		var widthErr *WidthError
		Expect(errors.As(err, &widthErr)).To(BeTrue())
		Expect(err).To(MatchError(ErrDoesNotFit))
		Expect(widthErr.Width).To(Equal(8))
		Expect(widthErr.Fields).To(ConsistOf(
			FieldCacheBytes,
			FieldTagMask,
			FieldIndexMask,
			FieldMaxTag,
		))
	})

	It("should cast the fields that fit a byte", func() {
		g := MustDerive(X8664)

		tagBits, err := CastField[uint8](g, FieldTagBits)
		Expect(err).NotTo(HaveOccurred())
		Expect(tagBits).To(Equal(uint8(36)))

		maxIndex, err := CastField[uint8](g, FieldMaxIndex)
		Expect(err).NotTo(HaveOccurred())
		Expect(maxIndex).To(Equal(uint8(63)))

		offsetMask, err := CastField[uint8](g, FieldOffsetMask)
		Expect(err).NotTo(HaveOccurred())
		Expect(offsetMask).To(Equal(uint8(0x3F)))

		_, err = CastField[uint8](g, FieldIndexMask)
		Expect(err).To(MatchError(ErrDoesNotFit))

		_, err = CastField[uint8](g, FieldCacheBytes)
		Expect(err).To(MatchError(ErrDoesNotFit))
	})

	It("should refuse x86-64 at 16 and 32 bits", func() {
		g := MustDerive(X8664)

		_, err := Narrow[uint16](g)
		Expect(err).To(MatchError(ErrDoesNotFit))

		_, err = Narrow[uint32](g)
		Expect(err).To(MatchError(ErrDoesNotFit))

		_, err = DeriveAt[uint32](X8664)
		Expect(err).To(MatchError(ErrDoesNotFit))
	})

	It("should name unfit fields in the error message", func() {
		_, err := Narrow[uint16](MustDerive(X86))

		Expect(err.Error()).To(ContainSubstring("TagMask"))
		Expect(err.Error()).To(ContainSubstring("16 bits"))
	})

	It("should pass spec errors through", func() {
		_, err := DeriveAt[uint64](X8664.WithBlockBytes(3))

		Expect(err).To(MatchError(ErrNotPowerOfTwo))
	})

	It("should panic on MustNarrow with an unfit width", func() {
		g := MustDerive(X8664)

		Expect(func() { MustNarrow[uint8](g) }).To(Panic())
		Expect(MustNarrow[uint64](g).TagBits).To(Equal(uint64(36)))
	})

	It("should check widths chosen at run time", func() {
		g := MustDerive(X86)

		Expect(CheckWidth(g, 32)).To(Succeed())
		Expect(CheckWidth(g, 64)).To(Succeed())

		err := CheckWidth(g, 16)
		var widthErr *WidthError
		Expect(errors.As(err, &widthErr)).To(BeTrue())
		Expect(widthErr.Fields).To(Equal([]Field{FieldTagMask, FieldMaxTag}))

		Expect(CheckWidth(g, 12)).To(MatchError(ErrUnsupportedWidth))
	})

	It("should list the fields that fit a width", func() {
		g := MustDerive(X86)

		Expect(FittingFields(g, 64)).To(Equal(AllFields()))
		Expect(FittingFields(g, 8)).To(Equal([]Field{
			FieldLinesPerSet,
			FieldBlockBytes,
			FieldAddressBits,
			FieldSets,
			FieldIndexBits,
			FieldOffsetBits,
			FieldTagBits,
			FieldOffsetMask,
			FieldMaxOffset,
			FieldMaxIndex,
		}))
	})
})
