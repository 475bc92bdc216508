package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/pkg/pipeline"
)

// layoutFlags are the simulation and input flags shared by the commands
// that compute layouts. Only flags set on the command line override the
// configuration.
type layoutFlags struct {
	root         string
	refresh      bool
	width        float64
	height       float64
	radius       float64
	linkDistance float64
	linkStrength float64
	charge       float64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.root, "root", "", "render only the subtree at this path, e.g. root/lib")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute the layout even when cached")
	fl.Float64Var(&f.width, "width", 0, "view box width")
	fl.Float64Var(&f.height, "height", 0, "view box height")
	fl.Float64Var(&f.radius, "radius", 0, "node radius")
	fl.Float64Var(&f.linkDistance, "link-distance", 0, "target link length")
	fl.Float64Var(&f.linkStrength, "link-strength", 0, "link force strength")
	fl.Float64Var(&f.charge, "charge", 0, "many-body strength (negative repels)")
}

func (f *layoutFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	fl := cmd.Flags()
	if f.root != "" {
		opts.Root = f.root
	}
	opts.Refresh = f.refresh
	for name, pair := range map[string]struct{ src, dst *float64 }{
		"width":         {&f.width, &opts.Width},
		"height":        {&f.height, &opts.Height},
		"radius":        {&f.radius, &opts.Radius},
		"link-distance": {&f.linkDistance, &opts.LinkDistance},
		"link-strength": {&f.linkStrength, &opts.LinkStrength},
		"charge":        {&f.charge, &opts.Charge},
	} {
		if fl.Changed(name) {
			*pair.dst = *pair.src
		}
	}
}

// outputFlags are the render flags shared by render and visualize.
type outputFlags struct {
	formats    string
	output     string
	title      string
	stylesheet string
	scale      float64
}

func (f *outputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.formats, "format", "f", "", fmt.Sprintf("output format(s), comma-separated: %v", pipeline.Formats))
	fl.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (several)")
	fl.StringVar(&f.title, "title", "", "HTML page title")
	fl.StringVar(&f.stylesheet, "style", "", "CSS file replacing the embedded stylesheet")
	fl.Float64Var(&f.scale, "scale", 0, "PNG scale factor")
}

func (f *outputFlags) apply(cmd *cobra.Command, opts *pipeline.Options) error {
	if formats := parseFormats(f.formats); len(formats) > 0 {
		opts.Formats = formats
	}
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}
	if f.title != "" {
		opts.Title = f.title
	}
	if f.stylesheet != "" {
		css, err := os.ReadFile(f.stylesheet)
		if err != nil {
			return fmt.Errorf("read stylesheet: %w", err)
		}
		opts.Style = string(css)
	}
	if cmd.Flags().Changed("scale") {
		opts.Scale = f.scale
	}
	return nil
}

// outputPath names the file written for format. A single format goes to
// -o verbatim; several formats share -o (or the input name) as base path.
func (f *outputFlags) outputPath(input, format string, formats int) string {
	if f.output != "" && formats == 1 {
		return f.output
	}
	base := basePath(input)
	if f.output != "" {
		base = basePath(f.output)
	}
	return base + "." + extension(format)
}

// extension maps a format to its file extension.
func extension(format string) string {
	switch format {
	case pipeline.FormatGraphviz:
		return "graphviz.svg"
	case pipeline.FormatJSON:
		return "layout.json"
	}
	return format
}
