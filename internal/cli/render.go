package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/pkg/pipeline"
)

// renderCommand creates the render command: ecosystem file to output files
// in one step.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		lf      layoutFlags
		of      outputFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "render [ecosystem.json|ecosystem.toml]",
		Short: "Render an ecosystem to SVG, HTML, DOT, PNG or PDF",
		Long: `Render an ecosystem hierarchy in one step.

The ecosystem is laid out with the force simulation until it cools, then
written in every requested format. Layouts and outputs are cached, so
re-rendering an unchanged file with new formats skips the simulation.

Use 'layout' and 'visualize' to run the two stages separately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions(cmd, &lf)
			if err != nil {
				return err
			}
			if err := of.apply(cmd, &opts); err != nil {
				return err
			}
			opts.Path = args[0]
			return c.runRender(cmd.Context(), opts, &of, noCache)
		},
	}

	lf.register(cmd)
	of.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, of *outputFlags, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+opts.Path+"...")
	spinner.Start()
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(ctx, opts.Path, res.Artifacts, of)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", opts.Path)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.NodeCount, res.Stats.LinkCount, res.CacheInfo.LayoutHit && res.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes every artifact and returns the paths in format
// order.
func writeArtifacts(ctx context.Context, input string, artifacts map[string][]byte, of *outputFlags) ([]string, error) {
	logger := loggerFromContext(ctx)
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := of.outputPath(input, f, len(formats))
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug("wrote output", "format", f, "path", path, "bytes", len(artifacts[f]))
		paths = append(paths, path)
	}
	return paths, nil
}
