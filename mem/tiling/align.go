package tiling

import "unsafe"

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// alignedBytes returns a zeroed slice of size bytes whose first byte is
// aligned to align, which must be a power of two.
func alignedBytes(size, align uintptr) []byte {
	raw := make([]byte, size+align-1)

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	offset := alignUp(addr, align) - addr

	return raw[offset : offset+size : offset+size]
}

func isAligned(p unsafe.Pointer, align uintptr) bool {
	return uintptr(p)&(align-1) == 0
}
