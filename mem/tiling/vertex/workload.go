package vertex

import (
	"fmt"
	"io"

	"github.com/sarchlab/cachetile/mem/tiling"
)

func position(row int) Vec4 {
	return Vec4{0, float32(row), 0, 1}
}

func red(row, rows int) uint8 {
	return uint8(255 * float32(row) / float32(rows))
}

// FillTiled writes the sample gradient into t, rewriting each row inner
// times. Elements are resolved once per row, then written in a loop.
func (l *Layout) FillTiled(t *tiling.Tiled, inner int) {
	l.fillTiledRows(t, l.Rows(), inner)
}

// fillTiledRows is FillTiled for the first count rows of t.
func (l *Layout) fillTiledRows(t *tiling.Tiled, count, inner int) {
	rows := l.Rows()

	for i := 0; i < count; i++ {
		pos := l.Position.At(t, i)
		r := l.ColorR.At(t, i)
		g := l.ColorG.At(t, i)
		b := l.ColorB.At(t, i)
		a := l.ColorA.At(t, i)

		for x := 0; x < inner; x++ {
			*pos = position(i)
			*r = red(i, rows)
			*g = 0
			*b = 0
			*a = 255
		}
	}
}

// FillInterleaved is FillTiled for interleaved records.
func (l *Layout) FillInterleaved(s *tiling.Interleaved, inner int) {
	rows := l.Rows()

	for i := 0; i < rows; i++ {
		pos := l.Position.At(s, i)
		r := l.ColorR.At(s, i)
		g := l.ColorG.At(s, i)
		b := l.ColorB.At(s, i)
		a := l.ColorA.At(s, i)

		for x := 0; x < inner; x++ {
			*pos = position(i)
			*r = red(i, rows)
			*g = 0
			*b = 0
			*a = 255
		}
	}
}

// FillArray is FillTiled for a plain slice of vertices.
func FillArray(vs []Vertex, inner int) {
	rows := len(vs)

	for i := range vs {
		for x := 0; x < inner; x++ {
			vs[i].Position = position(i)
			vs[i].ColorR = red(i, rows)
			vs[i].ColorG = 0
			vs[i].ColorB = 0
			vs[i].ColorA = 255
		}
	}
}

// Print writes the filled attributes of every row of s.
func (l *Layout) Print(w io.Writer, s tiling.Store) error {
	for i := 0; i < l.Rows(); i++ {
		if err := printRow(w, i, l.Load(s, i)); err != nil {
			return err
		}
	}

	return nil
}

// PrintArray writes the filled attributes of every vertex of vs.
func PrintArray(w io.Writer, vs []Vertex) error {
	for i, v := range vs {
		if err := printRow(w, i, v); err != nil {
			return err
		}
	}

	return nil
}

func printRow(w io.Writer, i int, v Vertex) error {
	_, err := fmt.Fprintf(w,
		"%d\n---\n\nposition.y: %g,\ncolor_r: %d,\ncolor_g: %d,\n"+
			"color_b: %d,\ncolor_a: %d,\n------\n\n",
		i, v.Position[1], v.ColorR, v.ColorG, v.ColorB, v.ColorA)

	return err
}
