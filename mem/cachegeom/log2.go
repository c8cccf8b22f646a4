package cachegeom

import "math/bits"

// CeilLog2 returns the smallest k such that 1<<k >= n. CeilLog2(0) and
// CeilLog2(1) are both 0.
func CeilLog2(n uint64) uint64 {
	if n < 2 {
		return 0
	}

	return uint64(bits.Len64(n - 1))
}

// LegacyLog2 returns the bit length of n, or 1 when n < 2.
func LegacyLog2(n uint64) uint64 {
	if n < 2 {
		return 1
	}

	return uint64(bits.Len64(n))
}

// lowMask returns a mask of the n low bits. n may be 64.
func lowMask(n uint64) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << n) - 1
}
