package forcetree

import (
	"fmt"
	"html"

	"github.com/matzehuels/forcetree/pkg/force"
	"github.com/matzehuels/forcetree/pkg/layout"
)

// SceneNode is a rendered ecosystem node. Nodes are indexed by their
// position in [Scene.Nodes].
type SceneNode struct {
	ID    string
	Label string // name, falling back to id
	Type  string // CSS class
	Path  string // native title
	Depth int
}

// SceneLink is a rendered parent-child edge between two scene nodes. Class
// is the type of the source node.
type SceneLink struct {
	Source, Target int
	Class          string
}

// Scene is the static part of a view, handed to [Surface.Mount] once.
type Scene struct {
	// ID is unique per view and used as the mount id by surfaces that
	// share a document.
	ID      string
	Root    string
	ViewBox layout.ViewBox
	Radius  float64
	Nodes   []SceneNode
	Links   []SceneLink
}

// Segment is a line between two points.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Frame is the dynamic part of a view, pushed to [Surface.UpdatePositions]
// after every simulation step.
type Frame struct {
	Seq   int
	Alpha float64
	Nodes []force.Point // indexed like Scene.Nodes
	Links []Segment     // indexed like Scene.Links

	// Selected and Hovered are node indices, or -1.
	Selected int
	Hovered  int
}

// Tooltip describes the hovered node.
type Tooltip struct {
	Node int
	Name string
	Type string
	Path string
}

// Heading returns "name (type)", or just the name for untyped nodes.
func (t Tooltip) Heading() string {
	if t.Type == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Type)
}

// HTML returns the tooltip body markup.
func (t Tooltip) HTML() string {
	return fmt.Sprintf("<h1>%s</h1><p>%s</p>", html.EscapeString(t.Heading()), html.EscapeString(t.Path))
}

// Transform is a zoom transform: scale by K, then translate by (X, Y).
type Transform struct {
	X, Y, K float64
}

// Identity is the transform of an unzoomed view.
var Identity = Transform{K: 1}

// Apply maps a graph point to view coordinates.
func (t Transform) Apply(p force.Point) force.Point {
	return force.Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a view point to graph coordinates.
func (t Transform) Invert(p force.Point) force.Point {
	return force.Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// String formats t as an SVG transform attribute.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.X, t.Y, t.K)
}

// Snapshot combines a scene and the node positions of a frame into a
// serializable layout.
func Snapshot(scene *Scene, f Frame) layout.Layout {
	l := layout.Layout{
		Version: layout.Version,
		Root:    scene.Root,
		ViewBox: scene.ViewBox,
		Radius:  scene.Radius,
		Nodes:   make([]layout.Node, len(scene.Nodes)),
		Links:   make([]layout.Link, len(scene.Links)),
	}
	for i, n := range scene.Nodes {
		l.Nodes[i] = layout.Node{ID: n.ID, Label: n.Label, Type: n.Type, Path: n.Path, Depth: n.Depth}
		if i < len(f.Nodes) {
			l.Nodes[i].X, l.Nodes[i].Y = f.Nodes[i].X, f.Nodes[i].Y
		}
	}
	for i, lk := range scene.Links {
		l.Links[i] = layout.Link{Source: lk.Source, Target: lk.Target, Class: lk.Class}
	}
	return l
}
