package datarecording

import (
	"fmt"
	"math"

	"github.com/sarchlab/cachetile/mem/cachegeom"
)

// Table names used by the cachetile commands.
const (
	BenchTable    = "bench"
	GeometryTable = "geometry"
)

// BenchEntry is one timed workload.
type BenchEntry struct {
	RunID        string
	Case         string
	Iterations   int
	Inner        int
	AvgSeconds   float64
	TotalSeconds float64
	Rows         int
	BlockBytes   int64
	RSS          int64
}

// GeometryEntry is a snapshot of a derived cache geometry. Masks are stored
// as hexadecimal text because SQLite integers are signed.
type GeometryEntry struct {
	Arch        string
	Log2        string
	LinesPerSet int64
	BlockBytes  int64
	CacheBytes  int64
	AddressBits int64
	Sets        int64
	IndexBits   int64
	OffsetBits  int64
	TagBits     int64
	OffsetMask  string
	IndexMask   string
	TagMask     string
	MaxOffset   string
	MaxIndex    string
	MaxTag      string
}

// NewGeometryEntry converts a geometry into a row.
func NewGeometryEntry(
	arch string,
	mode cachegeom.Log2Mode,
	g cachegeom.Geometry,
) (GeometryEntry, error) {
	counts := []uint64{
		g.LinesPerSet, g.BlockBytes, g.CacheBytes, g.AddressBits,
		g.Sets, g.IndexBits, g.OffsetBits, g.TagBits,
	}
	for _, c := range counts {
		if c > math.MaxInt64 {
			return GeometryEntry{}, fmt.Errorf(
				"geometry count %d exceeds int64: %w", c, ErrInvalidEntry)
		}
	}

	hex := func(v uint64) string { return fmt.Sprintf("%#x", v) }

	return GeometryEntry{
		Arch:        arch,
		Log2:        mode.String(),
		LinesPerSet: int64(g.LinesPerSet),
		BlockBytes:  int64(g.BlockBytes),
		CacheBytes:  int64(g.CacheBytes),
		AddressBits: int64(g.AddressBits),
		Sets:        int64(g.Sets),
		IndexBits:   int64(g.IndexBits),
		OffsetBits:  int64(g.OffsetBits),
		TagBits:     int64(g.TagBits),
		OffsetMask:  hex(g.OffsetMask),
		IndexMask:   hex(g.IndexMask),
		TagMask:     hex(g.TagMask),
		MaxOffset:   hex(g.MaxOffset),
		MaxIndex:    hex(g.MaxIndex),
		MaxTag:      hex(g.MaxTag),
	}, nil
}

// BenchRecorder writes benchmark runs and the geometry they ran under.
type BenchRecorder struct {
	recorder      DataRecorder
	benchReady    bool
	geometryReady bool
}

// NewBenchRecorder wraps recorder. Tables are created on first use.
func NewBenchRecorder(recorder DataRecorder) *BenchRecorder {
	return &BenchRecorder{recorder: recorder}
}

// RecordBench buffers one benchmark result.
func (r *BenchRecorder) RecordBench(e BenchEntry) error {
	if !r.benchReady {
		if err := r.recorder.CreateTable(BenchTable, BenchEntry{}); err != nil {
			return err
		}

		r.benchReady = true
	}

	return r.recorder.InsertData(BenchTable, e)
}

// RecordGeometry buffers one geometry snapshot.
func (r *BenchRecorder) RecordGeometry(
	arch string,
	mode cachegeom.Log2Mode,
	g cachegeom.Geometry,
) error {
	e, err := NewGeometryEntry(arch, mode, g)
	if err != nil {
		return err
	}

	if !r.geometryReady {
		err := r.recorder.CreateTable(GeometryTable, GeometryEntry{})
		if err != nil {
			return err
		}

		r.geometryReady = true
	}

	return r.recorder.InsertData(GeometryTable, e)
}

// Close flushes and closes the underlying recorder.
func (r *BenchRecorder) Close() error {
	return r.recorder.Close()
}
