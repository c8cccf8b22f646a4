package cmd

import (
	"fmt"
	"os"

	"github.com/sarchlab/cachetile/datarecording"
	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <file.sqlite3>",
		Short: "Print the benchmark results stored by bench --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			entries, err := datarecording.ReadBenchEntries(cmd.Context(), reader)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-22s %-12s %10s %6s %14s\n",
				"run", "case", "iterations", "inner", "seconds/call")

			for _, e := range entries {
				fmt.Fprintf(w, "%-22s %-12s %10d %6d %14.9f\n",
					e.RunID, e.Case, e.Iterations, e.Inner, e.AvgSeconds)
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newResultsCmd())
}
