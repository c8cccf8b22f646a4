package cachegeom

import (
	"fmt"
	"sort"
	"strconv"
)

//go:generate go run github.com/sarchlab/cachetile/cachetile gen --arch x86-64 --width 64 --prefix X8664 --out archconsts_x8664.go
//go:generate go run github.com/sarchlab/cachetile/cachetile gen --arch x86 --width 32 --prefix X86 --out archconsts_x86.go

// Cache parameters of common L1 data caches.
var (
	X8664 = Spec{LinesPerSet: 8, BlockBytes: 64, CacheBytes: 1 << 15, AddressBits: 48}
	X86   = Spec{LinesPerSet: 8, BlockBytes: 64, CacheBytes: 1 << 15, AddressBits: 32}
)

var archs = map[string]Spec{
	"x86-64": X8664,
	"x86":    X86,
}

// LookupArch returns the spec registered under name.
func LookupArch(name string) (Spec, error) {
	spec, ok := archs[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown architecture %q", name)
	}

	return spec, nil
}

// ArchNames lists the registered architectures in sorted order.
func ArchNames() []string {
	names := make([]string, 0, len(archs))
	for name := range archs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NativeArch returns the name of the architecture matching the pointer
// width of the running program.
func NativeArch() string {
	if strconv.IntSize == 64 {
		return "x86-64"
	}

	return "x86"
}

// Native is the geometry of NativeArch.
var Native = MustDerive(archs[NativeArch()])
