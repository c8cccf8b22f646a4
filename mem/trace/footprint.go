package trace

import (
	"log"

	"github.com/sarchlab/cachetile/mem/cachegeom"
)

// Footprint summarizes the cache blocks a trace touches.
type Footprint struct {
	Accesses int `json:"accesses"`

	// Blocks and Sets count distinct block addresses and set indices.
	Blocks int `json:"blocks"`
	Sets   int `json:"sets"`

	// Transitions counts accesses that start in a block other than the one
	// the previous access ended in. The first access is a transition.
	Transitions int `json:"transitions"`

	// Straddles counts accesses that span more than one block.
	Straddles int `json:"straddles"`
}

// An Analyzer resolves accesses against a geometry and accumulates their
// footprint. It only slices addresses; it keeps no cache contents.
type Analyzer struct {
	geometry cachegeom.Geometry
	tracer   Tracer

	blocks    map[uint64]struct{}
	sets      map[uint64]struct{}
	lastBlock uint64
	footprint Footprint
}

// NewAnalyzer creates an Analyzer for g.
func NewAnalyzer(g cachegeom.Geometry) *Analyzer {
	a := &Analyzer{geometry: g}
	a.Reset()

	return a
}

// WithTracer sets the tracer that receives every access.
func (a *Analyzer) WithTracer(t Tracer) *Analyzer {
	a.tracer = t
	return a
}

// Footprint returns the footprint of the accesses since the last Reset.
func (a *Analyzer) Footprint() Footprint {
	return a.footprint
}

// Reset forgets every access.
func (a *Analyzer) Reset() {
	a.blocks = make(map[uint64]struct{})
	a.sets = make(map[uint64]struct{})
	a.lastBlock = 0
	a.footprint = Footprint{}
}

// Access adds a read of size bytes at addr.
func (a *Analyzer) Access(addr uint64, size int) {
	if size <= 0 {
		log.Panicf("access of %d bytes at 0x%x", size, addr)
	}

	g := a.geometry
	first := g.BlockAddress(addr)
	last := g.BlockAddress(addr + uint64(size) - 1)

	newBlock := a.footprint.Accesses == 0 || first != a.lastBlock

	for b := first; ; b += g.BlockBytes {
		a.blocks[b] = struct{}{}
		a.sets[g.Split(b).Index] = struct{}{}

		if b == last {
			break
		}
	}

	a.footprint.Accesses++
	a.footprint.Blocks = len(a.blocks)
	a.footprint.Sets = len(a.sets)

	if newBlock {
		a.footprint.Transitions++
	}

	if first != last {
		a.footprint.Straddles++
	}

	a.lastBlock = last

	if a.tracer != nil {
		a.tracer.TraceAccess(Access{
			Addr:     addr,
			Size:     size,
			Block:    first,
			Set:      g.Split(addr).Index,
			NewBlock: newBlock,
		})
	}
}
