// Package cachegeom derives the addressing geometry of a set-associative
// cache from its associativity, block size, total size, and address width.
package cachegeom

import (
	"errors"
	"fmt"
)

// Errors returned when a Spec cannot describe a cache.
var (
	ErrZeroParameter    = errors.New("cache parameter must be positive")
	ErrNotPowerOfTwo    = errors.New("value must be a power of two")
	ErrPartialSet       = errors.New("cache must have an integer number of sets")
	ErrAddressTooNarrow = errors.New("address too narrow for index and offset")
	ErrAddressTooWide   = errors.New("address wider than 64 bits")
)

// Log2Mode selects how the bit widths of the index and offset are counted.
type Log2Mode int

const (
	// Log2Ceil counts the bits needed to number n values, so a single-set
	// cache has no index bits.
	Log2Ceil Log2Mode = iota

	// Log2Legacy counts the bit length of n, and never less than one.
	// It reproduces constants derived by older tools and overstates every
	// width by one for powers of two.
	Log2Legacy
)

func (m Log2Mode) String() string {
	switch m {
	case Log2Ceil:
		return "ceil"
	case Log2Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Log2Mode(%d)", int(m))
	}
}

// Spec holds the four parameters a cache geometry is derived from.
type Spec struct {
	LinesPerSet uint64 // Set associativity
	BlockBytes  uint64 // Cache line size
	CacheBytes  uint64 // Total capacity
	AddressBits uint64 // Physical address width

	Log2 Log2Mode
}

// Defaults returns the geometry parameters of an x86-64 L1 data cache.
func Defaults() Spec {
	return X8664
}

// WithLinesPerSet returns a copy of the spec with the given associativity.
func (s Spec) WithLinesPerSet(n uint64) Spec {
	s.LinesPerSet = n
	return s
}

// WithBlockBytes returns a copy of the spec with the given line size.
func (s Spec) WithBlockBytes(n uint64) Spec {
	s.BlockBytes = n
	return s
}

// WithCacheBytes returns a copy of the spec with the given capacity.
func (s Spec) WithCacheBytes(n uint64) Spec {
	s.CacheBytes = n
	return s
}

// WithAddressBits returns a copy of the spec with the given address width.
func (s Spec) WithAddressBits(n uint64) Spec {
	s.AddressBits = n
	return s
}

// WithLog2Mode returns a copy of the spec counting bits with the given mode.
func (s Spec) WithLog2Mode(m Log2Mode) Spec {
	s.Log2 = m
	return s
}

// Validate reports whether the spec describes a cache whose geometry can be
// derived.
func (s Spec) Validate() error {
	switch {
	case s.LinesPerSet == 0:
		return fmt.Errorf("lines per set: %w", ErrZeroParameter)
	case s.BlockBytes == 0:
		return fmt.Errorf("block bytes: %w", ErrZeroParameter)
	case s.CacheBytes == 0:
		return fmt.Errorf("cache bytes: %w", ErrZeroParameter)
	case s.AddressBits == 0:
		return fmt.Errorf("address bits: %w", ErrZeroParameter)
	}

	if s.AddressBits > 64 {
		return fmt.Errorf("%d bits: %w", s.AddressBits, ErrAddressTooWide)
	}

	if !isPowerOfTwo(s.BlockBytes) {
		return fmt.Errorf("block bytes %d: %w", s.BlockBytes, ErrNotPowerOfTwo)
	}

	setBytes := s.LinesPerSet * s.BlockBytes
	if setBytes/s.BlockBytes != s.LinesPerSet ||
		s.CacheBytes < setBytes ||
		s.CacheBytes%setBytes != 0 {
		return fmt.Errorf("%d bytes in sets of %d bytes: %w",
			s.CacheBytes, setBytes, ErrPartialSet)
	}

	sets := s.CacheBytes / setBytes
	if !isPowerOfTwo(sets) {
		return fmt.Errorf("%d sets: %w", sets, ErrNotPowerOfTwo)
	}

	used := s.log2(sets) + s.log2(s.BlockBytes)
	if used > s.AddressBits {
		return fmt.Errorf("%d index and offset bits in a %d-bit address: %w",
			used, s.AddressBits, ErrAddressTooNarrow)
	}

	return nil
}

func (s Spec) log2(n uint64) uint64 {
	if s.Log2 == Log2Legacy {
		return LegacyLog2(n)
	}

	return CeilLog2(n)
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}
