package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/pipeline"
)

// visualizeCommand creates the visualize command for rendering a computed
// layout.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		of      outputFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "visualize [layout.json]",
		Short: "Render a computed layout",
		Long: `Render a layout.json file (produced by 'layout') to SVG, HTML, DOT, PNG or
PDF. The layout holds every node position, so no simulation runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.config().PipelineOptions()
			if err != nil {
				return err
			}
			if err := of.apply(cmd, &opts); err != nil {
				return err
			}
			opts.Logger = c.Logger
			return c.runVisualize(cmd.Context(), args[0], opts, &of, noCache)
		},
	}

	of.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runVisualize(ctx context.Context, input string, opts pipeline.Options, of *outputFlags, noCache bool) error {
	l, err := layout.ReadFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d formats", len(artifacts)))

	paths, err := writeArtifacts(ctx, trimLayoutSuffix(input), artifacts, of)
	if err != nil {
		return err
	}
	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	printStats(len(l.Nodes), len(l.Links), cached)
	return nil
}

// trimLayoutSuffix maps deps.layout.json to deps.json so outputs are named
// after the ecosystem, not the layout file.
func trimLayoutSuffix(path string) string {
	if base, ok := strings.CutSuffix(path, ".layout.json"); ok {
		return base + ".json"
	}
	return path
}
