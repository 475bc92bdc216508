package forcetree

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/force"
)

// fakeSurface records everything a view sends it.
type fakeSurface struct {
	mu         sync.Mutex
	scene      *Scene
	frames     []Frame
	tooltip    Tooltip
	visible    bool
	transforms []Transform
	drag       DragHandler
	pointer    PointerHandler
	zoom       *Zoom
	disposed   int
	mountErr   error
}

func (s *fakeSurface) Mount(scene *Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = scene
	return s.mountErr
}

func (s *fakeSurface) UpdatePositions(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *fakeSurface) BindDrag(h DragHandler)       { s.drag = h }
func (s *fakeSurface) BindPointer(h PointerHandler) { s.pointer = h }
func (s *fakeSurface) BindZoom(z *Zoom)             { s.zoom = z }

func (s *fakeSurface) ShowTooltip(t Tooltip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tooltip, s.visible = t, true
}

func (s *fakeSurface) HideTooltip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

func (s *fakeSurface) ApplyTransform(t Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transforms = append(s.transforms, t)
}

func (s *fakeSurface) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed++
	return nil
}

func (s *fakeSurface) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSurface) lastFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

func (s *fakeSurface) tooltipVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// twoLevel builds root -> {A, B}, A -> {C}.
func twoLevel(t *testing.T) *ecosystem.Node {
	t.Helper()
	root, err := ecosystem.Build(&ecosystem.Data{
		ID: "root", Type: "ecosystem",
		Children: []*ecosystem.Data{
			{ID: "A", Name: "Alpha", Type: "package", Children: []*ecosystem.Data{{ID: "C", Type: "module"}}},
			{ID: "B", Type: "package"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root
}

func libTree(t *testing.T) *ecosystem.Node {
	t.Helper()
	root, err := ecosystem.Build(&ecosystem.Data{
		ID: "root", Type: "ecosystem",
		Children: []*ecosystem.Data{
			{ID: "lib", Type: "package", Children: []*ecosystem.Data{
				{ID: "util", Name: "Utilities", Type: "module"},
				{ID: "io", Type: "module"},
			}},
			{ID: "cmd", Type: "package"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root
}

func renderStatic(t *testing.T, root *ecosystem.Node, opts ...Option) (*View, *fakeSurface) {
	t.Helper()
	s := &fakeSurface{}
	v, err := Render(context.Background(), root, s, append([]Option{WithStatic()}, opts...)...)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	t.Cleanup(func() { _ = v.Dispose() })
	return v, s
}

func nodeIndex(t *testing.T, v *View, id string) int {
	t.Helper()
	for i, n := range v.Scene().Nodes {
		if n.ID == id {
			return i
		}
	}
	t.Fatalf("node %q not rendered", id)
	return -1
}

func TestRenderTwoLevelTree(t *testing.T) {
	v, s := renderStatic(t, twoLevel(t))

	var ids []string
	for _, n := range s.scene.Nodes {
		ids = append(ids, n.ID)
	}
	if len(ids) != 3 || ids[0] != "A" || ids[1] != "B" || ids[2] != "C" {
		t.Errorf("nodes = %v, want [A B C]", ids)
	}

	if len(s.scene.Links) != 1 {
		t.Fatalf("links = %d, want 1", len(s.scene.Links))
	}
	l := s.scene.Links[0]
	if src, tgt := s.scene.Nodes[l.Source].ID, s.scene.Nodes[l.Target].ID; src != "A" || tgt != "C" {
		t.Errorf("link = %s-%s, want A-C", src, tgt)
	}
	if l.Class != "package" {
		t.Errorf("link class = %q, want source type %q", l.Class, "package")
	}
	if s.scene.Nodes[nodeIndex(t, v, "C")].Path != "root/A/C" {
		t.Errorf("title path = %q, want root/A/C", s.scene.Nodes[2].Path)
	}
}

func TestRenderCounts(t *testing.T) {
	data := &ecosystem.Data{ID: "root"}
	// root with 4 children, each with 3 children, each with 2 children.
	for i := 0; i < 4; i++ {
		c := &ecosystem.Data{ID: string(rune('a' + i))}
		for j := 0; j < 3; j++ {
			g := &ecosystem.Data{ID: string(rune('a'+i)) + string(rune('0'+j))}
			for k := 0; k < 2; k++ {
				g.Children = append(g.Children, &ecosystem.Data{ID: g.ID + string(rune('x'+k))})
			}
			c.Children = append(c.Children, g)
		}
		data.Children = append(data.Children, c)
	}
	root, err := ecosystem.Build(data)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantNodes, wantLinks := 0, 0
	for _, d := range root.Descendants() {
		if d.Depth > 0 {
			wantNodes++
		}
	}
	for _, l := range root.Links() {
		if l.Source.Depth > 0 {
			wantLinks++
		}
	}

	_, s := renderStatic(t, root)
	if got := len(s.scene.Nodes); got != wantNodes || got != 4+12+24 {
		t.Errorf("nodes = %d, want %d", got, wantNodes)
	}
	if got := len(s.scene.Links); got != wantLinks || got != 12+24 {
		t.Errorf("links = %d, want %d", got, wantLinks)
	}
	f := s.lastFrame()
	if len(f.Nodes) != wantNodes || len(f.Links) != wantLinks {
		t.Errorf("frame = %d nodes %d links, want %d %d", len(f.Nodes), len(f.Links), wantNodes, wantLinks)
	}
}

func TestRenderSubtree(t *testing.T) {
	root := libTree(t)
	lib, ok := root.Find("root/lib")
	if !ok {
		t.Fatal("root/lib not found")
	}
	_, s := renderStatic(t, lib)
	if len(s.scene.Nodes) != 2 || len(s.scene.Links) != 0 {
		t.Errorf("scene = %d nodes %d links, want 2 0", len(s.scene.Nodes), len(s.scene.Links))
	}
}

func TestRenderRejectsNilInput(t *testing.T) {
	if _, err := Render(context.Background(), nil, &fakeSurface{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil root: err = %v, want INVALID_INPUT", err)
	}
	if _, err := Render(context.Background(), twoLevel(t), nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil surface: err = %v, want INVALID_INPUT", err)
	}
}

func TestRenderMountError(t *testing.T) {
	s := &fakeSurface{mountErr: errors.New(errors.ErrCodeUnsupported, "no display")}
	if _, err := Render(context.Background(), twoLevel(t), s, WithStatic()); err == nil {
		t.Error("Render should fail when Mount fails")
	}
}

func TestFrameLinksFollowNodes(t *testing.T) {
	_, s := renderStatic(t, twoLevel(t))
	f := s.lastFrame()
	l := s.scene.Links[0]
	seg := f.Links[0]
	src, tgt := f.Nodes[l.Source], f.Nodes[l.Target]
	if seg.X1 != src.X || seg.Y1 != src.Y || seg.X2 != tgt.X || seg.Y2 != tgt.Y {
		t.Errorf("segment = %+v, want endpoints %+v %+v", seg, src, tgt)
	}
}

func TestStaticRenderSettles(t *testing.T) {
	v, s := renderStatic(t, twoLevel(t))
	if a := v.Simulation().Alpha(); a >= v.Simulation().AlphaMin() {
		t.Errorf("alpha = %v, want settled", a)
	}
	if s.frameCount() != 1 {
		t.Errorf("frames = %d, want 1", s.frameCount())
	}
}

func TestRootOnlyEcosystem(t *testing.T) {
	root, err := ecosystem.Build(&ecosystem.Data{ID: "root", Type: "ecosystem"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, s := renderStatic(t, root)

	if n := len(s.scene.Nodes) + len(s.scene.Links); n != 0 {
		t.Errorf("scene has %d elements, want none", n)
	}
	if f := s.lastFrame(); len(f.Nodes) != 0 || f.Selected != -1 {
		t.Errorf("frame = %+v, want empty", f)
	}
	v.Click(0)
	if v.Selected() != -1 {
		t.Errorf("Selected() = %d, want -1", v.Selected())
	}
	if l := v.Layout(); len(l.Nodes) != 0 {
		t.Errorf("layout nodes = %d, want 0", len(l.Nodes))
	}
}

func TestDragLifecycle(t *testing.T) {
	v, _ := renderStatic(t, twoLevel(t))
	sim := v.Simulation()
	a := nodeIndex(t, v, "A")

	v.DragStart(a)
	if !v.Dragging(a) {
		t.Fatal("node should be dragging")
	}
	if got := sim.AlphaTarget(); got != DragAlphaTarget {
		t.Errorf("alphaTarget during drag = %v, want %v", got, DragAlphaTarget)
	}
	if !sim.Running() {
		t.Error("DragStart should restart the simulation")
	}

	v.Drag(a, 12, -7)
	sim.Tick(3)
	if p := sim.Position(a); p.X != 12 || p.Y != -7 {
		t.Errorf("dragged position = %+v, want (12, -7)", p)
	}
	if x, y, ok := sim.Fixed(a); !ok || x != 12 || y != -7 {
		t.Errorf("Fixed() = %v, %v, %v, want 12, -7, true", x, y, ok)
	}

	v.DragEnd(a)
	if _, _, ok := sim.Fixed(a); ok {
		t.Error("pinned position should be cleared after release")
	}
	if got := sim.AlphaTarget(); got != 0 {
		t.Errorf("alphaTarget after drag = %v, want 0", got)
	}
	if v.Dragging(a) {
		t.Error("node should be idle after DragEnd")
	}
}

func TestDragStartPinsCurrentPosition(t *testing.T) {
	v, _ := renderStatic(t, twoLevel(t))
	sim := v.Simulation()
	b := nodeIndex(t, v, "B")

	before := sim.Position(b)
	v.DragStart(b)
	x, y, ok := sim.Fixed(b)
	if !ok || x != before.X || y != before.Y {
		t.Errorf("Fixed() = %v, %v, %v, want %v, %v, true", x, y, ok, before.X, before.Y)
	}
}

func TestConcurrentDrags(t *testing.T) {
	v, _ := renderStatic(t, twoLevel(t))
	sim := v.Simulation()

	v.DragStart(0)
	v.DragStart(1)
	v.DragEnd(0)
	if got := sim.AlphaTarget(); got != DragAlphaTarget {
		t.Errorf("alphaTarget with one drag left = %v, want %v", got, DragAlphaTarget)
	}
	v.DragEnd(1)
	if got := sim.AlphaTarget(); got != 0 {
		t.Errorf("alphaTarget after last drag = %v, want 0", got)
	}
}

func TestDragEventsOutOfOrderAreIgnored(t *testing.T) {
	v, _ := renderStatic(t, twoLevel(t))
	sim := v.Simulation()

	v.Drag(0, 50, 50)
	if _, _, ok := sim.Fixed(0); ok {
		t.Error("Drag without DragStart should not pin")
	}

	v.DragStart(0)
	v.DragStart(1)
	v.DragEnd(1)
	v.DragEnd(1)
	if got := sim.AlphaTarget(); got != DragAlphaTarget {
		t.Errorf("repeated DragEnd lowered alphaTarget to %v", got)
	}

	v.DragStart(99)
	v.DragEnd(99)
}

func TestHoverTooltip(t *testing.T) {
	v, s := renderStatic(t, libTree(t))
	util := nodeIndex(t, v, "util")

	v.PointerEnter(util)
	if !s.tooltipVisible() {
		t.Fatal("tooltip should be visible on hover")
	}
	tip := s.tooltip
	if tip.Path != "root/lib/util" {
		t.Errorf("Path = %q, want %q", tip.Path, "root/lib/util")
	}
	if got, want := tip.Heading(), "Utilities (module)"; got != want {
		t.Errorf("Heading() = %q, want %q", got, want)
	}
	if got, want := tip.HTML(), "<h1>Utilities (module)</h1><p>root/lib/util</p>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	v.PointerLeave(util)
	if s.tooltipVisible() {
		t.Error("tooltip should hide when leaving an unselected node")
	}
}

func TestTooltipFallsBackToID(t *testing.T) {
	v, _ := renderStatic(t, libTree(t))
	tip, ok := v.Tooltip(nodeIndex(t, v, "io"))
	if !ok {
		t.Fatal("Tooltip() not found")
	}
	if got, want := tip.Heading(), "io (module)"; got != want {
		t.Errorf("Heading() = %q, want %q", got, want)
	}
}

func TestSelectedNodeKeepsTooltip(t *testing.T) {
	v, s := renderStatic(t, libTree(t))
	util, io := nodeIndex(t, v, "util"), nodeIndex(t, v, "io")

	v.PointerEnter(util)
	v.Click(util)
	v.PointerLeave(util)
	if !s.tooltipVisible() {
		t.Error("tooltip should stay visible when leaving the selected node")
	}

	v.PointerEnter(io)
	v.PointerLeave(io)
	if s.tooltipVisible() {
		t.Error("tooltip should hide when leaving an unselected node")
	}
}

func TestSingleSelection(t *testing.T) {
	v, s := renderStatic(t, libTree(t))
	util, io := nodeIndex(t, v, "util"), nodeIndex(t, v, "io")

	v.Click(util)
	v.Click(io)
	if got := v.Selected(); got != io {
		t.Errorf("Selected() = %d, want %d", got, io)
	}
	if got := s.lastFrame().Selected; got != io {
		t.Errorf("frame Selected = %d, want %d", got, io)
	}

	// The previous selection no longer keeps the tooltip open.
	v.PointerEnter(util)
	v.PointerLeave(util)
	if s.tooltipVisible() {
		t.Error("leaving a previously selected node should hide the tooltip")
	}

	v.Click(io)
	if got := v.Selected(); got != io {
		t.Errorf("clicking the selected node: Selected() = %d, want %d", got, io)
	}

	v.ClearSelection()
	if got := v.Selected(); got != -1 {
		t.Errorf("Selected() after ClearSelection = %d, want -1", got)
	}
}

func TestZoomClamp(t *testing.T) {
	v, s := renderStatic(t, twoLevel(t))

	tests := []struct {
		name string
		zoom func() Transform
		want float64
	}{
		{"ZoomTo above", func() Transform { return v.ZoomTo(10) }, MaxScale},
		{"ZoomTo below", func() Transform { return v.ZoomTo(0.01) }, MinScale},
		{"ZoomTo inside", func() Transform { return v.ZoomTo(2) }, 2},
		{"ZoomBy above", func() Transform { return v.ZoomBy(100, 10, 10) }, MaxScale},
		{"ZoomBy below", func() Transform { return v.ZoomBy(0.0001, 10, 10) }, MinScale},
		{"ZoomTo negative", func() Transform { return v.ZoomTo(-3) }, MinScale},
		{"surface Set", func() Transform { return s.zoom.Set(Transform{K: 7}) }, MaxScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.zoom()
			if got.K != tt.want {
				t.Errorf("K = %v, want %v", got.K, tt.want)
			}
			if last := s.transforms[len(s.transforms)-1]; last != got {
				t.Errorf("surface transform = %+v, want %+v", last, got)
			}
		})
	}
}

func TestZoomByKeepsPointFixed(t *testing.T) {
	z := NewZoom(200, 200, MinScale, MaxScale)
	p := force.Point{X: 30, Y: 40}
	before := z.Transform().Invert(p)
	t2 := z.ScaleBy(2, p.X, p.Y)
	after := t2.Invert(p)
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Errorf("graph point under cursor moved from %+v to %+v", before, after)
	}
}

func TestPan(t *testing.T) {
	v, s := renderStatic(t, twoLevel(t))
	got := v.Pan(5, -3)
	if got.X != 5 || got.Y != -3 || got.K != 1 {
		t.Errorf("Pan() = %+v, want (5, -3, 1)", got)
	}
	if got.String() != "translate(5,-3) scale(1)" {
		t.Errorf("String() = %q", got.String())
	}
	if len(s.transforms) != 1 {
		t.Errorf("transforms = %d, want 1", len(s.transforms))
	}
}

func TestIndependentRenders(t *testing.T) {
	root := twoLevel(t)
	v1, s1 := renderStatic(t, root)
	v2, s2 := renderStatic(t, root)

	if v1.ID() == v2.ID() || s1.scene.ID == s2.scene.ID {
		t.Error("views should have distinct ids")
	}
	if v1.Simulation() == v2.Simulation() {
		t.Error("views should not share a simulation")
	}

	v1.DragStart(0)
	v1.Drag(0, 80, 80)
	if _, _, ok := v2.Simulation().Fixed(0); ok {
		t.Error("dragging in one view pinned a node in the other")
	}
	v1.Click(1)
	if v2.Selected() != -1 {
		t.Error("selection leaked into the other view")
	}
}

func TestEcosystemIsNotModified(t *testing.T) {
	root := twoLevel(t)
	before, err := ecosystem.Marshal(root.Data)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := renderStatic(t, root)
	v.DragStart(0)
	v.Drag(0, 1, 1)
	v.Click(0)
	v.DragEnd(0)

	after, err := ecosystem.Marshal(root.Data)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("ecosystem changed:\n%s\n%s", before, after)
	}
}

func TestDeterministicLayout(t *testing.T) {
	root := libTree(t)
	v1, _ := renderStatic(t, root)
	v2, _ := renderStatic(t, root)

	l1, l2 := v1.Layout(), v2.Layout()
	for i := range l1.Nodes {
		if l1.Nodes[i] != l2.Nodes[i] {
			t.Errorf("node %d: %+v != %+v", i, l1.Nodes[i], l2.Nodes[i])
		}
	}
	if l1.Root != "root" || l1.Radius != DefaultRadius || l1.ViewBox.String() != "-100 -100 200 200" {
		t.Errorf("layout header = %q %v %q", l1.Root, l1.Radius, l1.ViewBox.String())
	}
	if err := l1.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestDispose(t *testing.T) {
	v, s := renderStatic(t, twoLevel(t))
	frames := s.frameCount()

	if err := v.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := v.Dispose(); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if s.disposed != 1 {
		t.Errorf("surface disposed %d times, want 1", s.disposed)
	}

	v.Click(0)
	v.PointerEnter(0)
	v.DragStart(0)
	v.ZoomTo(3)
	if v.Settle() != 0 {
		t.Error("Settle after Dispose should do nothing")
	}
	if s.frameCount() != frames {
		t.Errorf("frames after dispose = %d, want %d", s.frameCount(), frames)
	}
	if s.tooltipVisible() || len(s.transforms) != 0 || v.Dragging(0) {
		t.Error("events after dispose should be ignored")
	}
}

func TestLiveViewStreamsFrames(t *testing.T) {
	s := &fakeSurface{}
	v, err := Render(context.Background(), twoLevel(t), s,
		WithSimulation(force.WithInterval(time.Millisecond)))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.frameCount() < 5 {
		if time.Now().After(deadline) {
			t.Fatal("no frames from the simulation loop")
		}
		time.Sleep(time.Millisecond)
	}

	if err := v.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	select {
	case <-v.Done():
	default:
		t.Error("loop should have exited after Dispose")
	}
	n := s.frameCount()
	time.Sleep(20 * time.Millisecond)
	if s.frameCount() != n {
		t.Error("frames arrived after Dispose")
	}

	f := s.lastFrame()
	for i := 1; i < n; i++ {
		if s.frames[i].Seq <= s.frames[i-1].Seq {
			t.Fatalf("frame seq not increasing at %d", i)
		}
	}
	if f.Selected != -1 || f.Hovered != -1 {
		t.Errorf("frame selection = %d/%d, want -1/-1", f.Selected, f.Hovered)
	}
}

func TestFramesDeliveredInOrderUnderInput(t *testing.T) {
	s := &fakeSurface{}
	v, err := Render(context.Background(), twoLevel(t), s,
		WithSimulation(force.WithInterval(time.Millisecond)))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	a := nodeIndex(t, v, "A")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				switch g {
				case 0:
					v.Click(i % 3)
				case 1:
					v.ClearSelection()
				default:
					v.DragStart(a)
					v.Drag(a, float64(i), float64(-i))
					v.DragEnd(a)
				}
			}
		}(g)
	}
	wg.Wait()
	if err := v.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		t.Fatal("no frames delivered")
	}
	for i := 1; i < len(s.frames); i++ {
		if got, want := s.frames[i].Seq, s.frames[i-1].Seq+1; got != want {
			t.Fatalf("frame %d has seq %d, want %d", i, got, want)
		}
	}
	if v.Simulation().AlphaTarget() != 0 {
		t.Errorf("alphaTarget = %v after all drags ended, want 0", v.Simulation().AlphaTarget())
	}
}

func TestLiveViewStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v, err := Render(ctx, twoLevel(t), &fakeSurface{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	cancel()
	select {
	case <-v.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop with its context")
	}
	_ = v.Dispose()
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
