package cmd

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"go/format"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/spf13/cobra"
)

//go:embed constsTemplate.txt
var constsTemplate string

var consts = template.Must(template.New("consts").Parse(constsTemplate))

type genOptions struct {
	Arch    string
	Spec    cachegeom.Spec
	Width   int
	Package string
	Prefix  string
	Partial bool
}

type genConst struct {
	Name  string
	Value string
}

type genData struct {
	Package string
	Arch    string
	Width   int
	Prefix  string
	Type    string
	Omitted string
	Consts  []genConst
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed Go constants for a cache geometry.",
		Long: "`gen` writes a Go file declaring every constant of a cache " +
			"geometry at one word width. Widths that cannot hold a constant " +
			"are refused unless --partial is given, in which case only the " +
			"constants that fit are written.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			arch, spec, err := specFromFlags(cmd)
			if err != nil {
				return err
			}

			opts := genOptions{Arch: arch, Spec: spec}
			opts.Width, _ = cmd.Flags().GetInt("width")
			opts.Package, _ = cmd.Flags().GetString("package")
			opts.Prefix, _ = cmd.Flags().GetString("prefix")
			opts.Partial, _ = cmd.Flags().GetBool("partial")
			out, _ := cmd.Flags().GetString("out")

			if opts.Prefix == "" {
				opts.Prefix = prefixOf(arch)
			}

			src, err := generateConsts(opts)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}

			return os.WriteFile(out, src, 0644)
		},
	}

	addSpecFlags(cmd)
	cmd.Flags().Int("width", 64, "Word width of the constants: 8, 16, 32, or 64")
	cmd.Flags().String("package", "cachegeom", "Package of the generated file")
	cmd.Flags().String("prefix", "", "Prefix of the constant names, derived from --arch by default")
	cmd.Flags().Bool("partial", false, "Write only the constants that fit --width")
	cmd.Flags().String("out", "", "Output file, standard output by default")

	return cmd
}

func init() {
	rootCmd.AddCommand(newGenCmd())
}

// prefixOf turns an architecture name into an exported identifier prefix,
// as in "x86-64" to "X8664".
func prefixOf(arch string) string {
	var b strings.Builder
	for _, r := range arch {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	p := b.String()
	if p == "" || unicode.IsDigit(rune(p[0])) {
		p = "Arch" + p
	}

	return strings.ToUpper(p[:1]) + p[1:]
}

func generateConsts(opts genOptions) ([]byte, error) {
	g, err := cachegeom.Derive(opts.Spec)
	if err != nil {
		return nil, err
	}

	err = cachegeom.CheckWidth(g, opts.Width)
	if errors.Is(err, cachegeom.ErrUnsupportedWidth) ||
		(err != nil && !opts.Partial) {
		return nil, err
	}

	fields := cachegeom.FittingFields(g, opts.Width)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no constant fits %d bits", opts.Width)
	}

	data := genData{
		Package: opts.Package,
		Arch:    opts.Arch,
		Width:   opts.Width,
		Prefix:  opts.Prefix,
		Type:    fmt.Sprintf("uint%d", opts.Width),
	}

	fit := make(map[cachegeom.Field]bool, len(fields))
	for _, f := range fields {
		fit[f] = true
		data.Consts = append(data.Consts, genConst{
			Name:  f.String(),
			Value: formatField(f, g.Value(f)),
		})
	}

	var omitted []string
	for _, f := range cachegeom.AllFields() {
		if !fit[f] {
			omitted = append(omitted, f.String())
		}
	}

	data.Omitted = strings.Join(omitted, ", ")

	buf := new(bytes.Buffer)
	if err := consts.Execute(buf, data); err != nil {
		return nil, err
	}

	return format.Source(buf.Bytes())
}
