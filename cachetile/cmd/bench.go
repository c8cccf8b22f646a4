package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/cachetile/bench"
	"github.com/sarchlab/cachetile/datarecording"
	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/sarchlab/cachetile/mem/tiling"
	"github.com/sarchlab/cachetile/mem/tiling/vertex"
	"github.com/sarchlab/cachetile/monitoring"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	Arch       string
	Spec       cachegeom.Spec
	Iterations int
	Inner      int
	Batch      int
	Print      bool
	Record     string
	Monitor    bool
	Port       int
	Open       bool
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time a vertex workload over tiled and interleaved layouts.",
		Long: "`bench` fills the position and color of every vertex of one " +
			"aggregate, stored tiled, interleaved, and as a plain array of " +
			"structs, and reports the average time of each fill.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			arch, spec, err := specFromFlags(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			opts := benchOptions{Arch: arch, Spec: spec}
			opts.Iterations, _ = flags.GetInt("iterations")
			opts.Inner, _ = flags.GetInt("inner")
			opts.Batch, _ = flags.GetInt("batch")
			opts.Print, _ = flags.GetBool("print")
			opts.Record, _ = flags.GetString("record")
			opts.Monitor, _ = flags.GetBool("monitor")
			opts.Port, _ = flags.GetInt("port")
			opts.Open, _ = flags.GetBool("open")

			return runBench(cmd.OutOrStdout(), bench.NewMonotonicClock(), opts)
		},
	}

	addSpecFlags(cmd)
	cmd.Flags().Int("iterations", defaults.Iterations, "Timed calls per layout")
	cmd.Flags().Int("inner", defaults.Inner, "Times each row is written per call")
	cmd.Flags().Int("batch", 0, "Also time tiled aggregates holding this many vertices")
	cmd.Flags().Bool("print", false, "Print the rows after timing")
	cmd.Flags().String("record", defaults.Record,
		"Record results to <record>.sqlite3 or a clickhouse:// DSN")
	cmd.Flags().Bool("monitor", false, "Serve the monitoring pages while running")
	cmd.Flags().Int("port", defaults.MonitorPort, "Port of the monitoring server")
	cmd.Flags().Bool("open", false, "Open the monitoring pages in a browser")

	return cmd
}

func init() {
	rootCmd.AddCommand(newBenchCmd())
}

type benchWorkload struct {
	// mu is held while the aggregates are written or served.
	mu sync.Mutex

	geometry    cachegeom.Geometry
	layout      *vertex.Layout
	tiled       *tiling.Tiled
	interleaved *tiling.Interleaved
	array       []vertex.Vertex
	batch       *vertex.Batch
}

func newBenchWorkload(spec cachegeom.Spec, batch int) (*benchWorkload, error) {
	g, err := cachegeom.Derive(spec)
	if err != nil {
		return nil, err
	}

	l, err := vertex.NewLayout(g)
	if err != nil {
		return nil, err
	}

	w := &benchWorkload{
		geometry:    g,
		layout:      l,
		tiled:       tiling.NewTiled(l.Schema),
		interleaved: tiling.NewInterleaved(l.Schema),
		array:       make([]vertex.Vertex, l.Rows()),
	}

	if batch > 0 {
		w.batch = vertex.NewBatch(l, batch)
	}

	return w, nil
}

func (w *benchWorkload) cases(inner int) []bench.Case {
	cases := []bench.Case{
		{Name: "tiled", Op: func() { w.layout.FillTiled(w.tiled, inner) }},
		{Name: "interleaved", Op: func() {
			w.layout.FillInterleaved(w.interleaved, inner)
		}},
		{Name: "array", Op: func() { vertex.FillArray(w.array, inner) }},
	}

	if w.batch != nil {
		cases = append(cases, bench.Case{
			Name: fmt.Sprintf("batch-%d", w.batch.Len()),
			Op:   func() { w.batch.Fill(inner) },
		})
	}

	return cases
}

func runBench(out io.Writer, clock bench.Clock, opts benchOptions) error {
	w, err := newBenchWorkload(opts.Spec, opts.Batch)
	if err != nil {
		return err
	}

	h := bench.NewHarness(clock)
	cases := w.cases(opts.Inner)

	if opts.Monitor {
		bar, done, err := startMonitor(w, opts, len(cases))
		if err != nil {
			return err
		}
		defer done()

		h.WithProgress(bar).WithLock(&w.mu)
	}

	results, err := h.RunAll(cases, opts.Iterations)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d rows per aggregate, block %d bytes, %d iterations\n",
		w.layout.Rows(), w.geometry.BlockBytes, opts.Iterations)

	for _, r := range results {
		fmt.Fprintf(out, "%-12s %12s per call\n",
			r.Name, r.Average.Round(time.Nanosecond))
	}

	if opts.Print {
		if err := printRows(out, w); err != nil {
			return err
		}
	}

	if opts.Record != "" {
		return recordBench(w, opts, results)
	}

	return nil
}

func startMonitor(
	w *benchWorkload,
	opts benchOptions,
	numCases int,
) (*monitoring.ProgressBar, func(), error) {
	m := monitoring.NewMonitor().WithPortNumber(opts.Port)
	m.RegisterGeometry(opts.Arch, w.geometry)
	m.RegisterStore("tiled", w.tiled, &w.mu)
	m.RegisterStore("interleaved", w.interleaved, &w.mu)

	url, err := m.StartServer()
	if err != nil {
		return nil, nil, err
	}

	if opts.Open {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	bar := m.CreateProgressBar("bench", uint64(numCases*opts.Iterations))

	return bar, func() { m.CompleteProgressBar(bar) }, nil
}

func printRows(out io.Writer, w *benchWorkload) error {
	fmt.Fprintln(out, "\ntiled:")
	if err := w.layout.Print(out, w.tiled); err != nil {
		return err
	}

	fmt.Fprintln(out, "\ninterleaved:")
	if err := w.layout.Print(out, w.interleaved); err != nil {
		return err
	}

	fmt.Fprintln(out, "\narray:")

	return vertex.PrintArray(out, w.array)
}

func recordBench(
	w *benchWorkload,
	opts benchOptions,
	results []bench.CaseResult,
) error {
	dr, err := datarecording.NewRecorder(opts.Record)
	if err != nil {
		return err
	}

	rec := datarecording.NewBenchRecorder(dr)

	if err := writeBenchEntries(rec, w, opts, results); err != nil {
		_ = rec.Close()
		return err
	}

	return rec.Close()
}

func writeBenchEntries(
	rec *datarecording.BenchRecorder,
	w *benchWorkload,
	opts benchOptions,
	results []bench.CaseResult,
) error {
	err := rec.RecordGeometry(opts.Arch, opts.Spec.Log2, w.geometry)
	if err != nil {
		return err
	}

	rss, err := monitoring.ResidentSetSize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read resident set size: %v\n", err)
	}

	runID := xid.New().String()
	for _, r := range results {
		err := rec.RecordBench(datarecording.BenchEntry{
			RunID:        runID,
			Case:         r.Name,
			Iterations:   r.Iterations,
			Inner:        opts.Inner,
			AvgSeconds:   r.AvgSeconds,
			TotalSeconds: r.Total.Seconds(),
			Rows:         w.layout.Rows(),
			BlockBytes:   int64(w.geometry.BlockBytes),
			RSS:          int64(rss),
		})
		if err != nil {
			return err
		}
	}

	return nil
}
