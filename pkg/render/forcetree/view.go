package forcetree

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/force"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/observability"
)

// View is a mounted, interactive graph. It implements [DragHandler] and
// [PointerHandler]; surfaces call those methods to feed input back.
//
// All methods are safe for concurrent use. After [View.Dispose] the input
// methods are no-ops.
type View struct {
	id      string
	ctx     context.Context
	scene   *Scene
	nodes   []*ecosystem.Node
	sim     *force.Simulation
	surface Surface
	zoom    *Zoom
	logger  *log.Logger
	created time.Time

	// pushMu orders frames: positions are read, numbered and delivered
	// under it, so Seq and positions advance together. Taken before mu.
	pushMu sync.Mutex

	mu       sync.Mutex
	dragging map[int]bool
	selected int
	hovered  int
	seq      int
	ticks    int
	disposed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Render builds a view of the hierarchy below root and mounts it on s.
//
// Every node below root becomes a particle; links leaving root itself are
// dropped, so the first level floats free. Unless [WithStatic] is given the
// simulation loop starts in a goroutine bound to ctx and runs until ctx is
// done or the view is disposed. The ecosystem is never modified.
func Render(ctx context.Context, root *ecosystem.Node, s Surface, opts ...Option) (*View, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "ecosystem root is nil")
	}
	if s == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "surface is nil")
	}
	cfg := newConfig(opts...)

	v := &View{
		id:       uuid.NewString(),
		ctx:      ctx,
		surface:  s,
		logger:   cfg.logger,
		created:  time.Now(),
		dragging: make(map[int]bool),
		selected: -1,
		hovered:  -1,
		done:     make(chan struct{}),
	}
	v.scene, v.nodes = buildScene(v.id, root, cfg)

	links := make([]force.Link, len(v.scene.Links))
	for i, l := range v.scene.Links {
		links[i] = force.Link{Source: l.Source, Target: l.Target}
	}
	v.sim = force.New(force.NewParticles(len(v.nodes)), cfg.simulation...)
	v.sim.AddForce("link", force.NewLink(links).Distance(cfg.linkDistance).Strength(cfg.linkStrength))
	v.sim.AddForce("charge", force.NewManyBody().Strength(cfg.charge))
	v.sim.AddForce("x", force.NewPositionX())
	v.sim.AddForce("y", force.NewPositionY())

	if err := s.Mount(v.scene); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "mount view")
	}

	v.zoom = NewZoom(cfg.width, cfg.height, MinScale, MaxScale)
	v.zoom.setListener(v.applyTransform)
	s.BindDrag(v)
	s.BindPointer(v)
	s.BindZoom(v.zoom)

	v.sim.OnTick(func([]force.Point) { v.push() })
	v.sim.OnEnd(func() { v.logger.Debug("simulation cooled", "view", v.id) })

	observability.View().OnViewMount(ctx, v.id, len(v.scene.Nodes), len(v.scene.Links))
	v.logger.Debug("mounted view", "view", v.id, "nodes", len(v.scene.Nodes), "links", len(v.scene.Links))

	if cfg.static {
		close(v.done)
		v.cancel = func() {}
		v.Settle()
		return v, nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	go func() {
		defer close(v.done)
		_ = v.sim.Run(loopCtx)
	}()
	return v, nil
}

func buildScene(id string, root *ecosystem.Node, cfg config) (*Scene, []*ecosystem.Node) {
	scene := &Scene{
		ID:      id,
		Root:    root.ID(),
		ViewBox: layout.Centered(cfg.width, cfg.height),
		Radius:  cfg.radius,
	}

	var nodes []*ecosystem.Node
	index := make(map[*ecosystem.Node]int)
	for _, d := range root.Descendants() {
		if d.Depth <= root.Depth {
			continue
		}
		index[d] = len(nodes)
		nodes = append(nodes, d)
		scene.Nodes = append(scene.Nodes, SceneNode{
			ID:    d.ID(),
			Label: d.DisplayName(),
			Type:  d.Type(),
			Path:  d.Path(),
			Depth: d.Depth - root.Depth,
		})
	}
	for _, l := range root.Links() {
		if l.Source.Depth <= root.Depth {
			continue
		}
		scene.Links = append(scene.Links, SceneLink{
			Source: index[l.Source],
			Target: index[l.Target],
			Class:  l.Source.Type(),
		})
	}
	return scene, nodes
}

// ID returns the unique id of the view.
func (v *View) ID() string { return v.id }

// Scene returns the mounted scene.
func (v *View) Scene() *Scene { return v.scene }

// Simulation returns the simulation driving the view.
func (v *View) Simulation() *force.Simulation { return v.sim }

// Zoom returns the zoom behavior bound to the surface.
func (v *View) Zoom() *Zoom { return v.zoom }

// Node returns the ecosystem node rendered at index i.
func (v *View) Node(i int) (*ecosystem.Node, bool) {
	if i < 0 || i >= len(v.nodes) {
		return nil, false
	}
	return v.nodes[i], true
}

// Selected returns the selected node index, or -1.
func (v *View) Selected() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Dragging reports whether node i is being dragged.
func (v *View) Dragging(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dragging[i]
}

// Disposed reports whether the view has been disposed.
func (v *View) Disposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}

func (v *View) valid(i int) bool { return i >= 0 && i < len(v.nodes) }

// DragStart begins dragging node i and pins it where it is. The first of
// several concurrent gestures warms the simulation up.
func (v *View) DragStart(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || !v.valid(i) || v.dragging[i] {
		return
	}
	if len(v.dragging) == 0 {
		v.sim.SetAlphaTarget(DragAlphaTarget)
		v.sim.Restart()
	}
	v.dragging[i] = true
	p := v.sim.Position(i)
	v.sim.Pin(i, p.X, p.Y)
	observability.View().OnViewEvent(v.ctx, v.id, "dragstart")
}

// Drag moves the pinned node i to (x, y). It is ignored unless node i is
// being dragged.
func (v *View) Drag(i int, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || !v.dragging[i] {
		return
	}
	v.sim.Pin(i, x, y)
}

// DragEnd releases node i. When the last gesture ends the simulation is
// allowed to cool.
func (v *View) DragEnd(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || !v.dragging[i] {
		return
	}
	delete(v.dragging, i)
	if len(v.dragging) == 0 {
		v.sim.SetAlphaTarget(0)
	}
	v.sim.Unpin(i)
	observability.View().OnViewEvent(v.ctx, v.id, "dragend")
}

// PointerEnter shows the tooltip for node i.
func (v *View) PointerEnter(i int) {
	v.mu.Lock()
	if v.disposed || !v.valid(i) {
		v.mu.Unlock()
		return
	}
	v.hovered = i
	t := v.tooltip(i)
	v.mu.Unlock()

	v.surface.ShowTooltip(t)
}

// PointerLeave hides the tooltip unless node i is selected.
func (v *View) PointerLeave(i int) {
	v.mu.Lock()
	if v.disposed || !v.valid(i) {
		v.mu.Unlock()
		return
	}
	if v.hovered == i {
		v.hovered = -1
	}
	keep := v.selected == i
	v.mu.Unlock()

	if !keep {
		v.surface.HideTooltip()
	}
}

// Click selects node i, clearing any previous selection.
func (v *View) Click(i int) {
	v.mu.Lock()
	if v.disposed || !v.valid(i) {
		v.mu.Unlock()
		return
	}
	v.selected = i
	t := v.tooltip(i)
	v.mu.Unlock()

	observability.View().OnViewEvent(v.ctx, v.id, "click")
	v.surface.ShowTooltip(t)
	v.push()
}

// ClearSelection deselects the selected node and hides its tooltip.
func (v *View) ClearSelection() {
	v.mu.Lock()
	if v.disposed || v.selected < 0 {
		v.mu.Unlock()
		return
	}
	v.selected = -1
	hovered := v.hovered
	v.mu.Unlock()

	if hovered < 0 {
		v.surface.HideTooltip()
	}
	v.push()
}

// Tooltip returns the tooltip of node i.
func (v *View) Tooltip(i int) (Tooltip, bool) {
	if !v.valid(i) {
		return Tooltip{}, false
	}
	return v.tooltip(i), true
}

func (v *View) tooltip(i int) Tooltip {
	n := v.nodes[i]
	return Tooltip{Node: i, Name: n.DisplayName(), Type: n.Type(), Path: n.Path()}
}

// ZoomTo sets the zoom scale, clamped to [MinScale, MaxScale].
func (v *View) ZoomTo(k float64) Transform {
	if v.Disposed() {
		return v.zoom.Transform()
	}
	return v.zoom.ScaleTo(k)
}

// ZoomBy scales by factor about the view point (px, py).
func (v *View) ZoomBy(factor, px, py float64) Transform {
	if v.Disposed() {
		return v.zoom.Transform()
	}
	return v.zoom.ScaleBy(factor, px, py)
}

// Pan translates the view by (dx, dy).
func (v *View) Pan(dx, dy float64) Transform {
	if v.Disposed() {
		return v.zoom.Transform()
	}
	return v.zoom.TranslateBy(dx, dy)
}

func (v *View) applyTransform(t Transform) {
	if v.Disposed() {
		return
	}
	v.surface.ApplyTransform(t)
}

// push sends a frame of the current positions to the surface.
func (v *View) push() {
	v.pushMu.Lock()
	defer v.pushMu.Unlock()

	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	positions := v.sim.Positions()
	v.seq++
	f := Frame{
		Seq:      v.seq,
		Alpha:    v.sim.Alpha(),
		Nodes:    positions,
		Links:    make([]Segment, len(v.scene.Links)),
		Selected: v.selected,
		Hovered:  v.hovered,
	}
	v.mu.Unlock()

	for i, l := range v.scene.Links {
		s, t := positions[l.Source], positions[l.Target]
		f.Links[i] = Segment{X1: s.X, Y1: s.Y, X2: t.X, Y2: t.Y}
	}
	v.surface.UpdatePositions(f)
}

// Settle runs the simulation synchronously until it cools and pushes one
// frame. It returns the number of steps taken.
func (v *View) Settle() int {
	if v.Disposed() {
		return 0
	}
	n := v.sim.Settle()
	v.mu.Lock()
	v.ticks += n
	v.mu.Unlock()
	v.push()
	return n
}

// Layout snapshots the current positions.
func (v *View) Layout() layout.Layout {
	l := Snapshot(v.scene, Frame{Nodes: v.sim.Positions()})
	v.mu.Lock()
	l.Ticks = v.ticks
	v.mu.Unlock()
	return l
}

// Dispose stops the simulation loop, waits for it to exit and disposes the
// surface. It is idempotent; only the first call returns the surface error.
func (v *View) Dispose() error {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return nil
	}
	v.disposed = true
	frames := v.seq
	v.mu.Unlock()

	v.cancel()
	<-v.done
	v.sim.Stop()

	observability.View().OnViewDispose(v.ctx, v.id, frames, time.Since(v.created))
	v.logger.Debug("disposed view", "view", v.id, "frames", frames)

	// a frame already being delivered lands before the surface goes away
	v.pushMu.Lock()
	err := v.surface.Dispose()
	v.pushMu.Unlock()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "dispose surface")
	}
	return nil
}

// Done returns a channel that is closed once the simulation loop has
// exited.
func (v *View) Done() <-chan struct{} { return v.done }
