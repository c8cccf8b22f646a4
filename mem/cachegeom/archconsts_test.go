package cachegeom

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Architectures", func() {
	It("should match the generated x86-64 constants", func() {
		v := MustNarrow[uint64](MustDerive(X8664))

		Expect(v).To(Equal(View[uint64]{
			LinesPerSet: X8664LinesPerSet,
			BlockBytes:  X8664BlockBytes,
			CacheBytes:  X8664CacheBytes,
			AddressBits: X8664AddressBits,
			Sets:        X8664Sets,
			IndexBits:   X8664IndexBits,
			OffsetBits:  X8664OffsetBits,
			TagBits:     X8664TagBits,
			OffsetMask:  X8664OffsetMask,
			IndexMask:   X8664IndexMask,
			TagMask:     X8664TagMask,
			MaxOffset:   X8664MaxOffset,
			MaxIndex:    X8664MaxIndex,
			MaxTag:      X8664MaxTag,
		}))
	})

	It("should match the generated x86 constants", func() {
		v := MustNarrow[uint32](MustDerive(X86))

		Expect(v).To(Equal(View[uint32]{
			LinesPerSet: X86LinesPerSet,
			BlockBytes:  X86BlockBytes,
			CacheBytes:  X86CacheBytes,
			AddressBits: X86AddressBits,
			Sets:        X86Sets,
			IndexBits:   X86IndexBits,
			OffsetBits:  X86OffsetBits,
			TagBits:     X86TagBits,
			OffsetMask:  X86OffsetMask,
			IndexMask:   X86IndexMask,
			TagMask:     X86TagMask,
			MaxOffset:   X86MaxOffset,
			MaxIndex:    X86MaxIndex,
			MaxTag:      X86MaxTag,
		}))
	})

	It("should look architectures up by name", func() {
		spec, err := LookupArch("x86")
		Expect(err).NotTo(HaveOccurred())
		Expect(spec).To(Equal(X86))

		_, err = LookupArch("riscv")
		Expect(err).To(HaveOccurred())

		Expect(ArchNames()).To(Equal([]string{"x86", "x86-64"}))
	})

	It("should derive the native geometry", func() {
		spec, err := LookupArch(NativeArch())
		Expect(err).NotTo(HaveOccurred())
		Expect(Native).To(Equal(MustDerive(spec)))
	})
})
