package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/sarchlab/cachetile/datarecording"
	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/sarchlab/cachetile/mem/tiling"
	"github.com/sarchlab/cachetile/mem/tiling/vertex"
	"github.com/sarchlab/cachetile/mem/trace"
	"github.com/spf13/cobra"
)

var kindDefiners = map[string]func(b *tiling.SchemaBuilder, name string){
	"uint8":   func(b *tiling.SchemaBuilder, n string) { tiling.Define[uint8](b, n) },
	"uint16":  func(b *tiling.SchemaBuilder, n string) { tiling.Define[uint16](b, n) },
	"uint32":  func(b *tiling.SchemaBuilder, n string) { tiling.Define[uint32](b, n) },
	"uint64":  func(b *tiling.SchemaBuilder, n string) { tiling.Define[uint64](b, n) },
	"int8":    func(b *tiling.SchemaBuilder, n string) { tiling.Define[int8](b, n) },
	"int16":   func(b *tiling.SchemaBuilder, n string) { tiling.Define[int16](b, n) },
	"int32":   func(b *tiling.SchemaBuilder, n string) { tiling.Define[int32](b, n) },
	"int64":   func(b *tiling.SchemaBuilder, n string) { tiling.Define[int64](b, n) },
	"float32": func(b *tiling.SchemaBuilder, n string) { tiling.Define[float32](b, n) },
	"float64": func(b *tiling.SchemaBuilder, n string) { tiling.Define[float64](b, n) },
	"vec4":    func(b *tiling.SchemaBuilder, n string) { tiling.Define[vertex.Vec4](b, n) },
}

func kindNames() []string {
	names := make([]string, 0, len(kindDefiners))
	for n := range kindDefiners {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print where a cache-tiled aggregate keeps its attributes.",
		Long: "`layout` builds a schema from --kinds, given as a comma " +
			"separated list of types or name=type pairs, or from the demo " +
			"vertex with --vertex, and prints its tiled and interleaved " +
			"layouts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, spec, err := specFromFlags(cmd)
			if err != nil {
				return err
			}

			g, err := cachegeom.Derive(spec)
			if err != nil {
				return err
			}

			kinds, _ := cmd.Flags().GetStringSlice("kinds")
			useVertex, _ := cmd.Flags().GetBool("vertex")
			asJSON, _ := cmd.Flags().GetBool("json")

			var schema *tiling.Schema
			if useVertex {
				l, err := vertex.NewLayout(g)
				if err != nil {
					return err
				}

				schema = l.Schema
			} else {
				schema, err = buildSchema(g, kinds)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return printLayoutJSON(cmd.OutOrStdout(), schema)
			}

			printSchema(cmd.OutOrStdout(), schema)

			if footprint, _ := cmd.Flags().GetBool("footprint"); footprint {
				tracer, done, err := accessTracer(cmd)
				if err != nil {
					return err
				}
				defer done()

				printFootprints(cmd.OutOrStdout(), g, schema, tracer)
			}

			return nil
		},
	}

	addSpecFlags(cmd)
	cmd.Flags().StringSlice("kinds", []string{"uint32", "uint16", "uint8", "uint64"},
		"Attribute types: "+strings.Join(kindNames(), ", "))
	cmd.Flags().Bool("vertex", false, "Use the demo vertex attributes")
	cmd.Flags().Bool("json", false, "Print the layouts as JSON")
	cmd.Flags().Bool("footprint", false,
		"Count the cache blocks row and column sweeps of both layouts touch")
	cmd.Flags().Bool("trace", false, "Log every swept access to standard error")
	cmd.Flags().String("trace-record", "",
		"Record every swept access to <trace-record>.sqlite3")

	return cmd
}

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func buildSchema(g cachegeom.Geometry, kinds []string) (*tiling.Schema, error) {
	b := tiling.NewSchemaBuilder(g)

	for _, k := range kinds {
		name, typ, found := strings.Cut(k, "=")
		if !found {
			name, typ = "", k
		}

		define, ok := kindDefiners[strings.TrimSpace(typ)]
		if !ok {
			return nil, fmt.Errorf("unknown attribute type %q", typ)
		}

		define(b, strings.TrimSpace(name))
	}

	return b.Build()
}

func printSchema(w io.Writer, s *tiling.Schema) {
	fmt.Fprintf(w, "Block %d bytes, %d rows, largest attribute %d bytes\n",
		s.BlockBytes(), s.RowCapacity(), s.MaxElementSize())
	fmt.Fprintf(w, "Tiled %d bytes, interleaved %d bytes (%d per record)\n\n",
		s.TiledSize(), s.RecordSize()*s.RowCapacity(), s.RecordSize())

	fmt.Fprintf(w, "%-10s %-12s %5s %5s %5s %7s %7s\n",
		"name", "type", "size", "align", "tile", "tiled@", "record@")

	for _, k := range s.Kinds() {
		fmt.Fprintf(w, "%-10s %-12s %5d %5d %5d %7d %7d\n",
			k.Name, k.Type, k.Size, k.Align, k.TileCapacity,
			k.TileOffset, k.RecordOffset)
	}
}

func printLayoutJSON(w io.Writer, s *tiling.Schema) error {
	layouts := []tiling.Layout{
		tiling.LayoutOf(tiling.NewTiled(s)),
		tiling.LayoutOf(tiling.NewInterleaved(s)),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(layouts)
}

// accessTracer returns the tracer the trace flags of cmd ask for, or nil, and
// a function that finishes it.
func accessTracer(cmd *cobra.Command) (trace.Tracer, func(), error) {
	toLog, _ := cmd.Flags().GetBool("trace")
	record, _ := cmd.Flags().GetString("trace-record")

	switch {
	case record != "":
		dr, err := datarecording.New(record)
		if err != nil {
			return nil, nil, err
		}

		t, err := trace.NewDBTracer(dr)
		if err != nil {
			return nil, nil, err
		}

		done := func() {
			if err := dr.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Cannot close trace: %v\n", err)
			}
		}

		return t, done, nil
	case toLog:
		return trace.NewTracer(log.New(os.Stderr, "", 0)), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func printFootprints(
	w io.Writer,
	g cachegeom.Geometry,
	s *tiling.Schema,
	tracer trace.Tracer,
) {
	a := trace.NewAnalyzer(g)
	if tracer != nil {
		a.WithTracer(tracer)
	}

	stores := []struct {
		name  string
		store tiling.Store
	}{
		{"tiled", tiling.NewTiled(s)},
		{"interleaved", tiling.NewInterleaved(s)},
	}

	orders := []struct {
		name  string
		trace func(tiling.Store, ...int) []tiling.Access
	}{
		{"row-major", tiling.RowMajorTrace},
		{"column-major", tiling.ColumnMajorTrace},
	}

	fmt.Fprintf(w, "\n%-12s %-13s %8s %8s %8s %11s\n",
		"layout", "order", "accesses", "blocks", "sets", "transitions")

	for _, st := range stores {
		for _, o := range orders {
			a.Reset()

			if tracer != nil {
				tracer.SetScope(st.name, o.name)
			}

			for _, acc := range o.trace(st.store) {
				a.Access(uint64(acc.Addr), acc.Size)
			}

			fp := a.Footprint()
			fmt.Fprintf(w, "%-12s %-13s %8d %8d %8d %11d\n",
				st.name, o.name, fp.Accesses, fp.Blocks, fp.Sets, fp.Transitions)
		}
	}
}
