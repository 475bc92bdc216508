// Package pkg provides the core libraries for forcetree ecosystem visualization.
//
// # Overview
//
// forcetree draws an ecosystem hierarchy (modules nested inside packages
// nested inside an ecosystem root) as a force-directed node-link diagram.
// Nodes repel each other, parent/child links pull them together, and the
// simulation cools until the picture settles. The pkg directory is organized
// by stage:
//
//  1. [ecosystem] - Hierarchy documents (JSON/TOML) and the validated tree
//  2. [force] - Velocity Verlet simulation with many-body and link forces
//  3. [render/forcetree] - Interactive renderer: scene, view, zoom, surfaces
//  4. [render/forcetree/sink] - Surfaces and static sinks (SVG, HTML, DOT, SSE)
//  5. [layout] - Serializable settled positions
//  6. [pipeline] - Orchestration (load → layout → render) with caching
//
// # Architecture
//
//	ecosystem.json / ecosystem.toml
//	         ↓
//	    [ecosystem] package (decode + build tree)
//	         ↓
//	    [render/forcetree] package (scene + simulation)
//	         ↓                       ↓
//	    [layout] (settled)      live Surface (terminal, browser SSE)
//	         ↓
//	    SVG/HTML/JSON/DOT/PNG/PDF output
//
// # Quick Start
//
// Render an ecosystem file to SVG:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "ecosystem.json",
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := res.Artifacts[pipeline.FormatSVG]
//
// Drive a live view:
//
//	root, _ := ecosystem.ReadFile("ecosystem.json")
//	view, _ := forcetree.Render(ctx, root, sink.NewStream(16))
//	defer view.Dispose()
//
// # Supporting Packages
//
// [cache] - Content-addressed caching of layouts and artifacts (null, file,
// Redis).
//
// [store] - Saved view snapshots (memory, MongoDB).
//
// [render] - SVG to PNG/PDF conversion through rsvg-convert.
//
// [errors] - Coded errors shared by the CLI and HTTP server.
//
// [observability] - Hooks for timing pipeline stages.
//
// [ecosystem]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/ecosystem
// [force]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/force
// [render/forcetree]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/render/forcetree
// [render/forcetree/sink]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/render/forcetree/sink
// [layout]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/layout
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/store
// [render]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/render
// [errors]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/forcetree/pkg/observability
package pkg
