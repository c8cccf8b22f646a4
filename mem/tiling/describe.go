package tiling

import "log"

// Layout is a plain description of where an aggregate keeps its attributes.
type Layout struct {
	Kind           string            `json:"kind"`
	BlockBytes     int               `json:"block_bytes"`
	RowCapacity    int               `json:"row_capacity"`
	MaxElementSize int               `json:"max_element_size"`
	Bytes          int               `json:"bytes"`
	Addr           uintptr           `json:"addr"`
	Attributes     []AttributeLayout `json:"attributes"`
}

// AttributeLayout describes one attribute of a Layout. Offset is the tile
// offset for tiled stores and the offset within a record otherwise.
type AttributeLayout struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int    `json:"size"`
	Align        int    `json:"align"`
	TileCapacity int    `json:"tile_capacity"`
	Offset       int    `json:"offset"`
}

// LayoutOf returns the layout of s.
func LayoutOf(s Store) Layout {
	schema := s.Schema()

	l := Layout{
		BlockBytes:     schema.BlockBytes(),
		RowCapacity:    schema.RowCapacity(),
		MaxElementSize: schema.MaxElementSize(),
	}

	tiled := false
	switch s := s.(type) {
	case *Tiled:
		l.Kind = "tiled"
		l.Bytes = len(s.mem)
		l.Addr = s.Addr()
		tiled = true
	case *Interleaved:
		l.Kind = "interleaved"
		l.Bytes = len(s.mem)
		l.Addr = s.Addr()
	default:
		log.Panicf("unknown store %T", s)
	}

	for _, k := range schema.kinds {
		offset := k.RecordOffset
		if tiled {
			offset = k.TileOffset
		}

		l.Attributes = append(l.Attributes, AttributeLayout{
			Name:         k.Name,
			Type:         k.Type.String(),
			Size:         int(k.Size),
			Align:        int(k.Align),
			TileCapacity: k.TileCapacity,
			Offset:       int(offset),
		})
	}

	return l
}
