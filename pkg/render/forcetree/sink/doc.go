// Package sink provides surfaces for the forcetree renderer.
//
// Each surface implements [forcetree.Surface] and records what the view
// sends it:
//
//   - [SVG] writes a static SVG snapshot of the last frame
//   - [HTML] writes a self-contained interactive page
//   - [Stream] fans frames out to subscribers, for the HTTP server
//   - [DOT] writes Graphviz DOT with pinned positions and renders it with
//     go-graphviz
//
// The SVG, HTML and DOT writers also work directly on a [layout.Layout],
// which is how cached layouts are rendered without running a simulation:
//
//	svg := sink.RenderSVG(l)
//	page, err := sink.RenderHTML(l, sink.WithTitle("deps"))
//	dot := sink.ToDOT(l)
package sink
