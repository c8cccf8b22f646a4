// Package cmd provides the command-line interface for cachetile.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachetile",
	Short: "cachetile derives cache geometries and lays out data by cache block.",
	Long: `cachetile derives the addressing constants of a set-associative ` +
		`cache, generates typed Go constants from them, prints the layout of ` +
		`cache-tiled aggregates, and times a vertex workload over tiled and ` +
		`interleaved layouts. Defaults can be set in the environment or in a ` +
		`.env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It exits through atexit so that registered flushes run.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
