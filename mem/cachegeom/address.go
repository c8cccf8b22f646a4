package cachegeom

// Address is a physical address split into the fields a cache uses to
// place it.
type Address struct {
	Tag    uint64
	Index  uint64
	Offset uint64
}

// Split slices addr into its tag, set index and block offset. Bits above
// AddressBits are ignored.
func (g Geometry) Split(addr uint64) Address {
	return Address{
		Tag:    (addr & g.TagMask) >> (g.OffsetBits + g.IndexBits),
		Index:  (addr & g.IndexMask) >> g.OffsetBits,
		Offset: addr & g.OffsetMask,
	}
}

// Compose is the inverse of Split. Field values beyond their maxima are
// truncated.
func (g Geometry) Compose(a Address) uint64 {
	return (a.Tag&g.MaxTag)<<(g.OffsetBits+g.IndexBits) |
		(a.Index&g.MaxIndex)<<g.OffsetBits |
		a.Offset&g.MaxOffset
}

// BlockAddress returns addr with its offset bits cleared.
func (g Geometry) BlockAddress(addr uint64) uint64 {
	return addr &^ g.OffsetMask
}
