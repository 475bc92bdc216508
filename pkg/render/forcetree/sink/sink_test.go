package sink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

func sampleLayout() layout.Layout {
	return layout.Layout{
		Version: layout.Version,
		Root:    "root",
		ViewBox: layout.Centered(200, 200),
		Radius:  3.5,
		Nodes: []layout.Node{
			{ID: "lib", Label: "lib", Type: "package", Path: "root/lib", Depth: 1, X: -10, Y: 5},
			{ID: "util", Label: "Utilities", Type: "module", Path: "root/lib/util", Depth: 2, X: -12, Y: 8},
			{ID: "cmd", Label: "cmd", Path: "root/cmd", Depth: 1, X: 20, Y: -4},
		},
		Links: []layout.Link{{Source: 0, Target: 1, Class: "package"}},
	}
}

func sampleRoot(t *testing.T) *ecosystem.Node {
	t.Helper()
	root, err := ecosystem.Build(&ecosystem.Data{
		ID: "root",
		Children: []*ecosystem.Data{
			{ID: "lib", Type: "package", Children: []*ecosystem.Data{{ID: "util", Name: "Utilities", Type: "module"}}},
			{ID: "cmd", Type: "package"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(sampleLayout()))

	for _, want := range []string{
		`viewBox="-100 -100 200 200"`,
		`<g id="graph" transform="translate(0,0) scale(1)">`,
		`<g id="edges">`,
		`<line class="package" x1="-10.000" y1="5.000" x2="-12.000" y2="8.000"/>`,
		`<g id="nodes">`,
		`<circle class="module" data-id="util" r="3.5" cx="-12.000" cy="8.000"><title>root/lib/util</title></circle>`,
		`<circle data-id="cmd"`,
		"<style>",
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
	if strings.Contains(svg, `class="tooltip"`) {
		t.Error("RenderSVG() should not draw a tooltip by default")
	}
}

func TestRenderSVGOptions(t *testing.T) {
	svg := string(RenderSVG(sampleLayout(),
		WithStyle(""),
		WithWidth(400),
		WithSelected(2),
		WithTransform(forcetree.Transform{X: 5, Y: 6, K: 2}),
		WithTooltip(forcetree.Tooltip{Name: "cmd", Path: "root/cmd"}),
	))

	for _, want := range []string{
		`width="400" height="400"`,
		`transform="translate(5,6) scale(2)"`,
		`<circle class="selected" data-id="cmd"`,
		`<g class="tooltip">`,
		`>root/cmd</text>`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
	if strings.Contains(svg, "<style>") {
		t.Error("WithStyle(\"\") should omit the stylesheet")
	}
}

func TestRenderSVGEscapes(t *testing.T) {
	l := sampleLayout()
	l.Nodes[2].Path = `root/<b>&"x"`
	svg := string(RenderSVG(l))
	if !strings.Contains(svg, "root/&lt;b&gt;&amp;&#34;x&#34;") {
		t.Error("RenderSVG() should escape titles")
	}
}

func TestSVGSurface(t *testing.T) {
	s := NewSVG()
	if s.Bytes() != nil {
		t.Error("Bytes() before mount should be nil")
	}

	v, err := forcetree.Render(context.Background(), sampleRoot(t), s, forcetree.WithStatic())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer v.Dispose()

	// Breadth-first: lib, cmd, util.
	v.PointerEnter(2)
	v.Click(2)
	svg := string(s.Bytes())

	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("circles = %d, want 3", got)
	}
	if got := strings.Count(svg, "<line"); got != 1 {
		t.Errorf("lines = %d, want 1", got)
	}
	if !strings.Contains(svg, `id="view-`+v.ID()+`"`) {
		t.Error("SVG should carry the view id")
	}
	if !strings.Contains(svg, `class="module selected"`) {
		t.Error("selected node should carry the selected class")
	}
	if !strings.Contains(svg, "Utilities (module)") {
		t.Error("visible tooltip should be drawn")
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(sampleLayout(), WithTitle("deps <1>"))
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := string(page)

	for _, want := range []string{
		"<title>deps &lt;1&gt;</title>",
		`<div class="tooltip hide"></div>`,
		`viewBox="-100 -100 200 200"`,
		`"path":"root/lib/util"`,
		`"min_scale":0.5`,
		`"max_scale":4`,
		`const live = "";`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("RenderHTML() missing %q", want)
		}
	}
}

func TestRenderHTMLDragScript(t *testing.T) {
	page, err := RenderHTML(sampleLayout())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := string(page)

	for _, want := range []string{
		`el.setAttribute("class", n.type)`,
		`["pointerup", "pointercancel", "lostpointercapture"]`,
		"if (done) return;",
		"if (suppressClick === i) return;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("RenderHTML() script missing %q", want)
		}
	}
	if strings.Contains(html, "classList.add(n.type)") {
		t.Error("node types with spaces must not go through classList.add")
	}
}

func TestRenderSVGFreeFormTypes(t *testing.T) {
	l := sampleLayout()
	l.Nodes[0].Type = "Local Authority"
	l.Nodes[1].Type = "R&D"
	svg := string(RenderSVG(l, WithSelected(1)))

	for _, want := range []string{
		`<circle class="Local Authority" data-id="lib"`,
		`<circle class="R&amp;D selected" data-id="util"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
}

func TestRenderHTMLLive(t *testing.T) {
	page, err := RenderHTML(sampleLayout(), WithLive("/views/abc"), WithViewState(forcetree.Transform{K: 2}, 1))
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := string(page)
	if strings.Contains(html, `const live = "";`) || !strings.Contains(html, "abc") {
		t.Error("live base should be embedded as a JS string")
	}
	if !strings.Contains(html, `"selected":1`) || !strings.Contains(html, `"k":2`) {
		t.Error("view state should be embedded")
	}
	if !strings.Contains(html, "<title>root</title>") {
		t.Error("title should default to the root id")
	}
}

func TestHTMLSurface(t *testing.T) {
	h := NewHTML(WithTitle("t"))
	if _, err := h.Bytes(); err == nil {
		t.Error("Bytes() before mount should fail")
	}
	v, err := forcetree.Render(context.Background(), sampleRoot(t), h, forcetree.WithStatic())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer v.Dispose()

	page, err := h.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !strings.Contains(string(page), `"id":"`+v.ID()+`"`) {
		t.Error("page should carry the view id")
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleLayout())

	for _, want := range []string{
		"graph G {",
		`n0 [pos="-40.000,-20.000!", tooltip="root/lib", id="lib", class="package"];`,
		`n2 [pos="80.000,16.000!", tooltip="root/cmd", id="cmd"];`,
		`n0 -- n1 [class="package"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}
}

func TestRenderGraphviz(t *testing.T) {
	svg, err := RenderGraphviz(context.Background(), ToDOT(sampleLayout()))
	if err != nil {
		t.Fatalf("RenderGraphviz: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderGraphviz() should produce SVG")
	}
}

func TestDOTSurface(t *testing.T) {
	d := NewDOT()
	if d.String() != "" {
		t.Error("String() before mount should be empty")
	}
	v, err := forcetree.Render(context.Background(), sampleRoot(t), d, forcetree.WithStatic())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer v.Dispose()

	if got := strings.Count(d.String(), "pos="); got != 3 {
		t.Errorf("pinned nodes = %d, want 3", got)
	}
}
