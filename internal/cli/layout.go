package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/pipeline"
)

// layoutCommand creates the layout command, which settles the simulation
// and writes the node positions without rendering.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		lf      layoutFlags
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "layout [ecosystem.json|ecosystem.toml]",
		Short: "Compute the settled layout of an ecosystem",
		Long: `Compute the settled layout of an ecosystem.

The output is a layout.json file (the same document as 'render -f json')
holding every node position. Render it with 'visualize' without running the
simulation again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions(cmd, &lf)
			if err != nil {
				return err
			}
			opts.Path = args[0]
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Loading "+opts.Path+"...")
	spinner.Start()
	root, hash, err := runner.Load(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return err
	}
	spinner.SetMessage(fmt.Sprintf("Settling %d nodes...", len(root.Descendants())-1))
	l, cached, err := runner.LayoutWithCacheInfo(ctx, root, hash, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	data, err := layout.Marshal(l)
	if err != nil {
		return err
	}
	if output == "" {
		output = basePath(opts.Path) + ".layout.json"
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(len(l.Nodes), len(l.Links), cached)
	printDetail("%d ticks", l.Ticks)
	printNewline()
	printNextStep("Render", appName+" visualize "+output)
	return nil
}
