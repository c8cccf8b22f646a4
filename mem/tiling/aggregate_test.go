package tiling

import (
	"math/rand"
	"unsafe"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachetile/mem/cachegeom"
)

var _ = Describe("Aggregate", func() {
	var (
		schema *Schema
		a      Attribute[uint32]
		b      Attribute[uint16]
		c      Attribute[uint8]
		stores map[string]func() Store
	)

	BeforeEach(func() {
		builder := NewSchemaBuilder(cachegeom.MustDerive(cachegeom.X8664))
		a = Define[uint32](builder, "a")
		b = Define[uint16](builder, "b")
		c = Define[uint8](builder, "c")

		var err error
		schema, err = builder.Build()
		Expect(err).NotTo(HaveOccurred())

		stores = map[string]func() Store{
			"tiled":       func() Store { return NewTiled(schema) },
			"interleaved": func() Store { return NewInterleaved(schema) },
		}
	})

	for _, name := range []string{"tiled", "interleaved"} {
		Context(name, func() {
			var s Store

			BeforeEach(func() {
				s = stores[name]()
			})

			It("should start zeroed", func() {
				for row := 0; row < s.RowCapacity(); row++ {
					Expect(Row(s, row)).To(Equal(
						[]any{uint32(0), uint16(0), uint8(0)}))
				}
			})

			It("should keep rows independent", func() {
				a.Set(s, 1, 3)
				b.Set(s, 1, 2)
				c.Set(s, 1, 1)

				Expect(a.Get(s, 1)).To(Equal(uint32(3)))
				Expect(b.Get(s, 1)).To(Equal(uint16(2)))
				Expect(c.Get(s, 1)).To(Equal(uint8(1)))

				Expect(a.Get(s, 0)).To(BeZero())
				Expect(b.Get(s, 0)).To(BeZero())
				Expect(c.Get(s, 0)).To(BeZero())
				Expect(a.Get(s, 2)).To(BeZero())
			})

			It("should keep attributes independent", func() {
				for row := 0; row < s.RowCapacity(); row++ {
					a.Set(s, row, 0xFFFFFFFF)
				}

				for row := 0; row < s.RowCapacity(); row++ {
					Expect(b.Get(s, row)).To(BeZero())
					Expect(c.Get(s, row)).To(BeZero())
				}
			})

			It("should resolve cells to the accessed element", func() {
				for row := 0; row < s.RowCapacity(); row++ {
					Expect(a.Cell(row).In(s)).To(BeIdenticalTo(a.At(s, row)))
					Expect(b.Cell(row).In(s)).To(BeIdenticalTo(b.At(s, row)))
					Expect(c.Cell(row).In(s)).To(BeIdenticalTo(c.At(s, row)))
				}

				cell := b.Cell(5)
				*cell.In(s) = 77
				Expect(b.Get(s, 5)).To(Equal(uint16(77)))
				Expect(cell.Row()).To(Equal(5))
			})

			It("should panic on rows out of range", func() {
				Expect(func() { a.At(s, -1) }).To(Panic())
				Expect(func() { a.At(s, s.RowCapacity()) }).To(Panic())
				Expect(func() { a.Cell(s.RowCapacity()) }).To(Panic())
				Expect(func() { s.Value(0, 16) }).To(Panic())
				Expect(func() { s.Bytes(3, 0) }).To(Panic())
			})

			It("should report rows out of range", func() {
				_, err := a.Lookup(s, 16)
				Expect(err).To(MatchError(ErrRowOutOfRange))

				p, err := a.Lookup(s, 15)
				Expect(err).NotTo(HaveOccurred())
				Expect(p).To(BeIdenticalTo(a.At(s, 15)))
			})

			It("should access attributes by index", func() {
				Expect(s.SetValue(1, 4, uint16(9))).To(Succeed())
				Expect(s.Value(1, 4)).To(Equal(uint16(9)))
				Expect(b.Get(s, 4)).To(Equal(uint16(9)))

				Expect(s.SetValue(1, 4, uint32(9))).To(MatchError(ErrTypeMismatch))
				Expect(s.SetValue(1, 4, nil)).To(MatchError(ErrTypeMismatch))
				Expect(s.SetValue(3, 0, uint8(1))).
					To(MatchError(ErrAttributeOutOfRange))
				Expect(s.SetValue(0, -1, uint32(1))).
					To(MatchError(ErrRowOutOfRange))
			})

			It("should expose element bytes", func() {
				a.Set(s, 2, 0x01020304)

				raw := s.Bytes(0, 2)
				Expect(raw).To(HaveLen(4))
				Expect(*(*uint32)(unsafe.Pointer(&raw[0]))).
					To(Equal(uint32(0x01020304)))
			})

			It("should reset", func() {
				a.Set(s, 3, 1)
				c.Set(s, 7, 1)

				s.Reset()

				Expect(a.Get(s, 3)).To(BeZero())
				Expect(c.Get(s, 7)).To(BeZero())
			})

			It("should align storage to a block", func() {
				Expect(LayoutOf(s).Addr % 64).To(BeZero())
			})

			It("should align every cell to its kind", func() {
				for attr, k := range schema.Kinds() {
					for row := 0; row < s.RowCapacity(); row++ {
						Expect(isAligned(s.pointer(attr, row), k.Align)).
							To(BeTrue())
					}
				}
			})
		})
	}

	It("should hold the same rows in both layouts", func() {
		tiled := NewTiled(schema)
		interleaved := NewInterleaved(schema)
		r := rand.New(rand.NewSource(42))

		for i := 0; i < 200; i++ {
			row := r.Intn(schema.RowCapacity())
			va, vb, vc := r.Uint32(), uint16(r.Uint32()), uint8(r.Uint32())

			for _, s := range []Store{tiled, interleaved} {
				a.Set(s, row, va)
				b.Set(s, row, vb)
				c.Set(s, row, vc)
			}
		}

		Expect(EqualRows(tiled, interleaved)).To(BeTrue())
		for row := 0; row < schema.RowCapacity(); row++ {
			Expect(Row(tiled, row)).To(Equal(Row(interleaved, row)))
		}

		c.Set(interleaved, 0, c.Get(interleaved, 0)+1)
		Expect(EqualRows(tiled, interleaved)).To(BeFalse())
	})

	It("should copy between layouts", func() {
		tiled := NewTiled(schema)
		for row := 0; row < schema.RowCapacity(); row++ {
			a.Set(tiled, row, uint32(row*1000))
			b.Set(tiled, row, uint16(row*10))
			c.Set(tiled, row, uint8(row))
		}

		interleaved := NewInterleaved(schema)
		Expect(Copy(interleaved, tiled)).To(Succeed())

		Expect(EqualRows(tiled, interleaved)).To(BeTrue())
		Expect(b.Get(interleaved, 9)).To(Equal(uint16(90)))
	})

	It("should refuse stores of another schema", func() {
		other := NewSchemaBuilder(cachegeom.MustDerive(cachegeom.X8664))
		Define[uint32](other, "a")
		otherSchema, err := other.Build()
		Expect(err).NotTo(HaveOccurred())

		foreign := NewTiled(otherSchema)

		Expect(func() { a.At(foreign, 0) }).To(Panic())
		Expect(func() { a.Cell(0).In(foreign) }).To(Panic())

		_, err = a.Lookup(foreign, 0)
		Expect(err).To(MatchError(ErrSchemaMismatch))

		Expect(EqualRows(foreign, NewTiled(schema))).To(BeFalse())
		Expect(Copy(foreign, NewTiled(schema))).To(MatchError(ErrSchemaMismatch))
	})

	Context("tiles", func() {
		It("should expose whole tiles as columns", func() {
			t := NewTiled(schema)

			Expect(a.Column(t)).To(HaveLen(16))
			Expect(b.Column(t)).To(HaveLen(32))
			Expect(c.Column(t)).To(HaveLen(64))
			Expect(c.Rows(t)).To(HaveLen(16))
			Expect(t.Tile(2)).To(HaveLen(64))

			c.Column(t)[40] = 9
			Expect(c.Rows(t)).To(HaveEach(BeZero()))
			Expect(t.Tile(2)[40]).To(Equal(byte(9)))

			b.Rows(t)[5] = 11
			Expect(b.Get(t, 5)).To(Equal(uint16(11)))
			Expect(&b.Column(t)[5]).To(BeIdenticalTo(b.At(t, 5)))
		})

		It("should place tiles back to back", func() {
			t := NewTiled(schema)

			base := t.Addr()
			Expect(uintptr(unsafe.Pointer(a.At(t, 0))) - base).To(Equal(uintptr(0)))
			Expect(uintptr(unsafe.Pointer(b.At(t, 0))) - base).To(Equal(uintptr(64)))
			Expect(uintptr(unsafe.Pointer(c.At(t, 0))) - base).To(Equal(uintptr(128)))
			Expect(uintptr(unsafe.Pointer(c.At(t, 3))) - base).To(Equal(uintptr(131)))
		})
	})

	It("should describe layouts", func() {
		l := LayoutOf(NewTiled(schema))

		Expect(l.Kind).To(Equal("tiled"))
		Expect(l.RowCapacity).To(Equal(16))
		Expect(l.Bytes).To(Equal(192))
		Expect(l.Attributes).To(HaveLen(3))
		Expect(l.Attributes[2].Offset).To(Equal(128))
		Expect(l.Attributes[2].Type).To(Equal("uint8"))

		l = LayoutOf(NewInterleaved(schema))

		Expect(l.Kind).To(Equal("interleaved"))
		Expect(l.Bytes).To(Equal(16 * 8))
		Expect(l.Attributes[2].Offset).To(Equal(6))
	})

	Context("traces", func() {
		It("should visit rows in order", func() {
			t := NewTiled(schema)
			base := t.Addr()

			trace := RowMajorTrace(t)

			Expect(trace).To(HaveLen(48))
			Expect(trace[:6]).To(Equal([]Access{
				{Addr: base, Size: 4},
				{Addr: base + 64, Size: 2},
				{Addr: base + 128, Size: 1},
				{Addr: base + 4, Size: 4},
				{Addr: base + 66, Size: 2},
				{Addr: base + 129, Size: 1},
			}))
		})

		It("should visit one attribute at a time", func() {
			r := NewInterleaved(schema)
			base := r.Addr()

			trace := ColumnMajorTrace(r, 2)

			Expect(trace).To(HaveLen(16))
			Expect(trace[0]).To(Equal(Access{Addr: base + 6, Size: 1}))
			Expect(trace[1]).To(Equal(Access{Addr: base + 14, Size: 1}))
		})

		It("should panic on unknown attributes", func() {
			Expect(func() { RowMajorTrace(NewTiled(schema), 3) }).To(Panic())
		})
	})
})
