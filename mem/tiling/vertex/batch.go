package vertex

import (
	"log"

	"github.com/sarchlab/cachetile/mem/tiling"
)

// A Batch spreads more vertices than one aggregate holds over as many tiled
// aggregates as needed.
type Batch struct {
	layout *Layout
	tiles  []*tiling.Tiled
	n      int
}

// NewBatch allocates aggregates for n vertices.
func NewBatch(l *Layout, n int) *Batch {
	rows := l.Rows()
	count := (n + rows - 1) / rows

	b := &Batch{layout: l, n: n}
	for i := 0; i < count; i++ {
		b.tiles = append(b.tiles, tiling.NewTiled(l.Schema))
	}

	return b
}

// Len returns the number of vertices in the batch.
func (b *Batch) Len() int {
	return b.n
}

// Aggregates returns the aggregates backing the batch.
func (b *Batch) Aggregates() []*tiling.Tiled {
	return b.tiles
}

// Locate returns the aggregate and row holding vertex i. It panics if i is
// not in [0, Len).
func (b *Batch) Locate(i int) (*tiling.Tiled, int) {
	if i < 0 || i >= b.n {
		log.Panicf("vertex %d out of range [0, %d)", i, b.n)
	}

	rows := b.layout.Rows()
	return b.tiles[i/rows], i % rows
}

// Load returns vertex i.
func (b *Batch) Load(i int) Vertex {
	t, row := b.Locate(i)
	return b.layout.Load(t, row)
}

// Store writes vertex i.
func (b *Batch) Store(i int, v Vertex) {
	t, row := b.Locate(i)
	b.layout.Store(t, row, v)
}

// Fill writes the sample gradient into the rows of the batch's vertices.
// Rows past the last vertex are left alone.
func (b *Batch) Fill(inner int) {
	rows := b.layout.Rows()

	for i, t := range b.tiles {
		b.layout.fillTiledRows(t, min(rows, b.n-i*rows), inner)
	}
}
