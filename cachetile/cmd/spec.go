package cmd

import (
	"fmt"
	"strings"

	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/spf13/cobra"
)

func addSpecFlags(cmd *cobra.Command) {
	cmd.Flags().String("arch", defaults.Arch,
		"Architecture to start from: "+strings.Join(cachegeom.ArchNames(), ", "))
	cmd.Flags().Uint64("ways", 0, "Lines per set, overriding the architecture")
	cmd.Flags().Uint64("block", 0, "Block size in bytes, overriding the architecture")
	cmd.Flags().Uint64("cache", 0, "Cache size in bytes, overriding the architecture")
	cmd.Flags().Uint64("address-bits", 0,
		"Address width in bits, overriding the architecture")
	cmd.Flags().Bool("legacy-log2", false,
		"Count bit widths as bit lengths instead of ceil(log2)")
}

// specFromFlags returns the architecture name and the spec the flags of cmd
// describe.
func specFromFlags(cmd *cobra.Command) (string, cachegeom.Spec, error) {
	flags := cmd.Flags()

	arch, _ := flags.GetString("arch")

	spec, err := cachegeom.LookupArch(arch)
	if err != nil {
		return "", cachegeom.Spec{}, err
	}

	overrides := []struct {
		flag  string
		apply func(cachegeom.Spec, uint64) cachegeom.Spec
	}{
		{"ways", cachegeom.Spec.WithLinesPerSet},
		{"block", cachegeom.Spec.WithBlockBytes},
		{"cache", cachegeom.Spec.WithCacheBytes},
		{"address-bits", cachegeom.Spec.WithAddressBits},
	}

	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}

		v, _ := flags.GetUint64(o.flag)
		spec = o.apply(spec, v)
		arch = "custom"
	}

	if legacy, _ := flags.GetBool("legacy-log2"); legacy {
		spec = spec.WithLog2Mode(cachegeom.Log2Legacy)
	}

	if err := spec.Validate(); err != nil {
		return "", cachegeom.Spec{}, fmt.Errorf("invalid cache: %w", err)
	}

	return arch, spec, nil
}

// isHexField reports whether a field reads better in hexadecimal.
func isHexField(f cachegeom.Field) bool {
	switch f {
	case cachegeom.FieldOffsetMask, cachegeom.FieldIndexMask,
		cachegeom.FieldTagMask, cachegeom.FieldMaxOffset,
		cachegeom.FieldMaxIndex, cachegeom.FieldMaxTag:
		return true
	default:
		return false
	}
}

func formatField(f cachegeom.Field, v uint64) string {
	if isHexField(f) {
		return fmt.Sprintf("%#x", v)
	}

	return fmt.Sprintf("%d", v)
}
