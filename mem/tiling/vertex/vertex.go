// Package vertex is a sample aggregate: the attributes of a mesh vertex,
// stored tiled, interleaved, or as a plain slice of structs.
package vertex

import (
	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/sarchlab/cachetile/mem/tiling"
)

// Vec4 is a four-component vector.
type Vec4 [4]float32

// Vertex is the array-of-structs form of a vertex.
type Vertex struct {
	Position Vec4
	Normal   Vec4

	TexU float32
	TexV float32

	ColorR uint8
	ColorG uint8
	ColorB uint8
	ColorA uint8
}

// Layout holds the schema of a vertex aggregate and its attribute handles.
type Layout struct {
	Schema *tiling.Schema

	Position tiling.Attribute[Vec4]
	Normal   tiling.Attribute[Vec4]

	TexU tiling.Attribute[float32]
	TexV tiling.Attribute[float32]

	ColorR tiling.Attribute[uint8]
	ColorG tiling.Attribute[uint8]
	ColorB tiling.Attribute[uint8]
	ColorA tiling.Attribute[uint8]
}

// NewLayout builds the vertex schema with tiles sized to the blocks of g.
func NewLayout(g cachegeom.Geometry) (*Layout, error) {
	b := tiling.NewSchemaBuilder(g)

	l := &Layout{
		Position: tiling.Define[Vec4](b, "position"),
		Normal:   tiling.Define[Vec4](b, "normal"),
		TexU:     tiling.Define[float32](b, "tex_u"),
		TexV:     tiling.Define[float32](b, "tex_v"),
		ColorR:   tiling.Define[uint8](b, "color_r"),
		ColorG:   tiling.Define[uint8](b, "color_g"),
		ColorB:   tiling.Define[uint8](b, "color_b"),
		ColorA:   tiling.Define[uint8](b, "color_a"),
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}

	l.Schema = s

	return l, nil
}

// Rows returns the number of vertices one aggregate holds.
func (l *Layout) Rows() int {
	return l.Schema.RowCapacity()
}

// Load returns the vertex at row of s.
func (l *Layout) Load(s tiling.Store, row int) Vertex {
	return Vertex{
		Position: l.Position.Get(s, row),
		Normal:   l.Normal.Get(s, row),
		TexU:     l.TexU.Get(s, row),
		TexV:     l.TexV.Get(s, row),
		ColorR:   l.ColorR.Get(s, row),
		ColorG:   l.ColorG.Get(s, row),
		ColorB:   l.ColorB.Get(s, row),
		ColorA:   l.ColorA.Get(s, row),
	}
}

// Store writes v to row of s.
func (l *Layout) Store(s tiling.Store, row int, v Vertex) {
	l.Position.Set(s, row, v.Position)
	l.Normal.Set(s, row, v.Normal)
	l.TexU.Set(s, row, v.TexU)
	l.TexV.Set(s, row, v.TexV)
	l.ColorR.Set(s, row, v.ColorR)
	l.ColorG.Set(s, row, v.ColorG)
	l.ColorB.Set(s, row, v.ColorB)
	l.ColorA.Set(s, row, v.ColorA)
}
