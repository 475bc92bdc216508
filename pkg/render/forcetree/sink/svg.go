package sink

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// DefaultCSS colors nodes and links by the common ecosystem types. Unknown
// types fall back to the plain circle and line rules.
const DefaultCSS = `
    circle { fill: #9ca3af; stroke: #fff; stroke-width: 0.5; cursor: grab; }
    circle.package { fill: #2563eb; }
    circle.module { fill: #16a34a; }
    circle.file { fill: #f59e0b; }
    circle.selected { stroke: #111827; stroke-width: 1.2; }
    line { stroke: #9ca3af; stroke-opacity: 0.6; stroke-width: 0.6; }
    line.package { stroke: #93c5fd; }
    line.module { stroke: #86efac; }
    .tooltip text { font: 6px sans-serif; fill: #111827; }
    .tooltip text.path { font-size: 4px; fill: #4b5563; }`

// SVGOption configures SVG output.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	css   string
	width float64
	state viewState
}

// WithStyle replaces the embedded stylesheet. An empty string omits it, for
// pages that style the graph themselves.
func WithStyle(css string) SVGOption { return func(r *svgRenderer) { r.css = css } }

// WithWidth sets the width attribute in pixels; the height follows the view
// box aspect ratio.
func WithWidth(px float64) SVGOption { return func(r *svgRenderer) { r.width = px } }

// WithTransform applies a zoom transform to the graph group.
func WithTransform(t forcetree.Transform) SVGOption {
	return func(r *svgRenderer) { r.state.Transform = t }
}

// WithSelected marks a node as selected.
func WithSelected(i int) SVGOption { return func(r *svgRenderer) { r.state.Selected = i } }

// WithTooltip draws the tooltip box in the corner of the view.
func WithTooltip(t forcetree.Tooltip) SVGOption {
	return func(r *svgRenderer) { r.state.Tooltip = &t }
}

// RenderSVG writes l as a standalone SVG document.
func RenderSVG(l layout.Layout, opts ...SVGOption) []byte {
	r := svgRenderer{css: DefaultCSS, state: defaultState()}
	for _, opt := range opts {
		opt(&r)
	}
	return r.render(l)
}

func (r svgRenderer) render(l layout.Layout) []byte {
	vb := l.ViewBox
	var buf bytes.Buffer

	if r.width > 0 {
		fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s" width="%.0f" height="%.0f"`,
			vb, r.width, r.width*vb.Height/vb.Width)
	} else {
		fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s"`, vb)
	}
	if r.state.ID != "" {
		fmt.Fprintf(&buf, ` id="view-%s"`, r.state.ID)
	}
	buf.WriteString(">\n")

	if r.css != "" {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", r.css)
	}

	fmt.Fprintf(&buf, `  <g id="graph" transform="%s">`+"\n", r.state.Transform)

	buf.WriteString(`    <g id="edges">` + "\n")
	for _, lk := range l.Links {
		s, t := l.Nodes[lk.Source], l.Nodes[lk.Target]
		fmt.Fprintf(&buf, `      <line%s x1="%.3f" y1="%.3f" x2="%.3f" y2="%.3f"/>`+"\n",
			classAttr(lk.Class, false), s.X, s.Y, t.X, t.Y)
	}
	buf.WriteString("    </g>\n")

	buf.WriteString(`    <g id="nodes">` + "\n")
	for i, n := range l.Nodes {
		fmt.Fprintf(&buf, `      <circle%s data-id="%s" r="%g" cx="%.3f" cy="%.3f"><title>%s</title></circle>`+"\n",
			classAttr(n.Type, i == r.state.Selected), html.EscapeString(n.ID), l.Radius, n.X, n.Y, html.EscapeString(n.Path))
	}
	buf.WriteString("    </g>\n")
	buf.WriteString("  </g>\n")

	if t := r.state.Tooltip; t != nil {
		renderTooltip(&buf, vb, *t)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderTooltip(buf *bytes.Buffer, vb layout.ViewBox, t forcetree.Tooltip) {
	x, y := vb.X+4, vb.Y+8
	fmt.Fprintf(buf, `  <g class="tooltip">`+"\n")
	fmt.Fprintf(buf, `    <text x="%g" y="%g">%s</text>`+"\n", x, y, html.EscapeString(t.Heading()))
	fmt.Fprintf(buf, `    <text class="path" x="%g" y="%g">%s</text>`+"\n", x, y+6, html.EscapeString(t.Path))
	buf.WriteString("  </g>\n")
}

func classAttr(class string, selected bool) string {
	switch {
	case class == "" && !selected:
		return ""
	case class == "":
		return ` class="selected"`
	case selected:
		return fmt.Sprintf(` class="%s selected"`, html.EscapeString(class))
	default:
		return fmt.Sprintf(` class="%s"`, html.EscapeString(class))
	}
}

// SVG is a surface that keeps the last frame and writes it as SVG.
type SVG struct {
	recorder
	opts []SVGOption
}

var _ forcetree.Surface = (*SVG)(nil)

// NewSVG creates an SVG surface. opts apply to every [SVG.Bytes] call.
func NewSVG(opts ...SVGOption) *SVG {
	return &SVG{recorder: newRecorder(), opts: opts}
}

// Bytes writes the current state. It returns nil before the view mounts.
func (s *SVG) Bytes() []byte {
	l, st, ok := s.snapshot()
	if !ok {
		return nil
	}
	r := svgRenderer{css: DefaultCSS, state: st}
	for _, opt := range s.opts {
		opt(&r)
	}
	return r.render(l)
}
