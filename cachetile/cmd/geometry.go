package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/spf13/cobra"
)

func newGeometryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Print the addressing constants of a cache.",
		Long: "`geometry` derives the constants of a cache at each word width. " +
			"Widths that cannot hold every constant list the fields that " +
			"do not fit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			arch, spec, err := specFromFlags(cmd)
			if err != nil {
				return err
			}

			widths, _ := cmd.Flags().GetIntSlice("width")
			addrs, _ := cmd.Flags().GetStringSlice("addr")

			g, err := cachegeom.Derive(spec)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Geometry of %s (log2: %s)\n", arch, spec.Log2)

			for _, width := range widths {
				if err := printWidth(w, g, width); err != nil {
					return err
				}
			}

			return printAddresses(w, g, addrs)
		},
	}

	addSpecFlags(cmd)
	cmd.Flags().IntSlice("width", cachegeom.Widths, "Word widths to show")
	cmd.Flags().StringSlice("addr", nil, "Addresses to split into tag, index, and offset")

	return cmd
}

func init() {
	rootCmd.AddCommand(newGeometryCmd())
}

func printWidth(w io.Writer, g cachegeom.Geometry, width int) error {
	err := cachegeom.CheckWidth(g, width)

	var widthErr *cachegeom.WidthError
	switch {
	case errors.As(err, &widthErr):
		fmt.Fprintf(w, "\n%d bits: %s\n", width, widthErr)
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(w, "\n%d bits:\n", width)

	for _, f := range cachegeom.AllFields() {
		fmt.Fprintf(w, "  %-12s %s\n", f, formatField(f, g.Value(f)))
	}

	return nil
}

func printAddresses(w io.Writer, g cachegeom.Geometry, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}

	fmt.Fprintln(w)

	for _, s := range addrs {
		addr, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("address %q: %w", s, err)
		}

		if g.AddressBits < 64 && addr>>g.AddressBits != 0 {
			return fmt.Errorf("address %#x is wider than %d bits",
				addr, g.AddressBits)
		}

		a := g.Split(addr)
		fmt.Fprintf(w, "%#x: tag %#x, index %d, offset %d, block %#x\n",
			addr, a.Tag, a.Index, a.Offset, g.BlockAddress(addr))
	}

	return nil
}
