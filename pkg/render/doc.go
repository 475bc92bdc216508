// Package render converts rendered graphs to other output formats.
//
// The graph itself is drawn by the [forcetree] renderer and its surfaces.
// This package only turns finished SVG into PDF or PNG using the external
// rsvg-convert tool (from librsvg):
//
//	svg := sink.RenderSVG(l)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
//
// When rsvg-convert is missing the functions fail with an UNSUPPORTED
// error; use [Available] to check up front.
//
// [forcetree]: github.com/matzehuels/forcetree/pkg/render/forcetree
package render
