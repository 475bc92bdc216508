package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// DOTScale converts layout units to points.
const DOTScale = 4.0

// ToDOT converts l to Graphviz DOT. Every node carries its position pinned
// with "!", so neato reproduces the force layout instead of computing its
// own.
func ToDOT(l layout.Layout) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, fixedsize=true, width=%.3f, label=\"\", style=filled, fillcolor=\"#9ca3af\", color=white, penwidth=0.5];\n",
		2*l.Radius*DOTScale/72)
	buf.WriteString("  edge [color=\"#9ca3af\"];\n")
	buf.WriteString("\n")

	for i, n := range l.Nodes {
		attrs := []string{
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", n.X*DOTScale, -n.Y*DOTScale),
			fmt.Sprintf("tooltip=%q", n.Path),
			fmt.Sprintf("id=%q", n.ID),
		}
		if n.Type != "" {
			attrs = append(attrs, fmt.Sprintf("class=%q", n.Type))
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, lk := range l.Links {
		if lk.Class != "" {
			fmt.Fprintf(&buf, "  n%d -- n%d [class=%q];\n", lk.Source, lk.Target, lk.Class)
			continue
		}
		fmt.Fprintf(&buf, "  n%d -- n%d;\n", lk.Source, lk.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderGraphviz renders DOT to SVG with the neato engine.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// DOT is a surface that keeps the last frame and writes it as DOT.
type DOT struct {
	recorder
}

var _ forcetree.Surface = (*DOT)(nil)

// NewDOT creates a DOT surface.
func NewDOT() *DOT { return &DOT{recorder: newRecorder()} }

// String writes the current state as DOT. It is empty before the view
// mounts.
func (d *DOT) String() string {
	l, _, ok := d.snapshot()
	if !ok {
		return ""
	}
	return ToDOT(l)
}

// SVG renders the current state through Graphviz.
func (d *DOT) SVG(ctx context.Context) ([]byte, error) {
	l, _, ok := d.snapshot()
	if !ok {
		return nil, fmt.Errorf("dot surface: nothing mounted")
	}
	return RenderGraphviz(ctx, ToDOT(l))
}
