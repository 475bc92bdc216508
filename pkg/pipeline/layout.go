package pipeline

import (
	"context"

	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
	"github.com/matzehuels/forcetree/pkg/render/forcetree/sink"
)

// ComputeLayout settles a headless view of root and returns its snapshot.
func ComputeLayout(ctx context.Context, root *ecosystem.Node, opts Options) (layout.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, err
	}
	v, err := forcetree.Render(ctx, root, sink.NewSVG(), append(opts.RenderOptions(), forcetree.WithStatic())...)
	if err != nil {
		return layout.Layout{}, err
	}
	defer v.Dispose()
	if err := ctx.Err(); err != nil {
		return layout.Layout{}, err
	}
	return v.Layout(), nil
}
