// Package forcetree renders an ecosystem hierarchy as an interactive
// force-directed graph.
//
// # Overview
//
// [Render] takes a built [ecosystem.Node] and a [Surface], and returns a
// [View]. The view turns every node below the root into a particle, links
// them by their parent-child edges (edges leaving the root are dropped so
// the first level floats free), and runs a [force.Simulation] with four
// forces:
//
//   - link: distance 0, strength 1, collapsing children onto parents
//   - charge: many-body repulsion of strength -50
//   - x, y: a weak pull of every node towards the origin
//
// After every simulation step the view pushes a [Frame] to the surface.
// The surface is a pure projection of the simulation: it draws what it is
// given and reports pointer input back through the [DragHandler] and
// [PointerHandler] the view binds to it.
//
// # Interaction
//
// Dragging pins a node. The first concurrent gesture raises the
// simulation's alpha target to [DragAlphaTarget] and restarts it; the last
// one lets it cool again. Hovering shows a [Tooltip] with the node's name,
// type and path; leaving hides it unless the node is selected. Clicking
// selects exactly one node. Zoom and pan go through a [Zoom] behavior whose
// scale is clamped to [MinScale, MaxScale].
//
// # Lifecycle
//
// A live view runs its simulation loop in a goroutine until the context
// passed to [Render] is done or [View.Dispose] is called. [WithStatic]
// settles the layout synchronously instead, which is what file exports use:
//
//	v, err := forcetree.Render(ctx, root, svg, forcetree.WithStatic())
//	defer v.Dispose()
//	l := v.Layout()
//
// Surfaces live in the [sink] subpackage.
//
// [sink]: github.com/matzehuels/forcetree/pkg/render/forcetree/sink
package forcetree
