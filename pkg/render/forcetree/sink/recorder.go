package sink

import (
	"sync"

	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// recorder keeps the latest state a view pushed to a surface. File surfaces
// embed it and only differ in how they write that state out.
type recorder struct {
	mu        sync.Mutex
	scene     *forcetree.Scene
	frame     forcetree.Frame
	tooltip   *forcetree.Tooltip
	transform forcetree.Transform
	disposed  bool

	drag    forcetree.DragHandler
	pointer forcetree.PointerHandler
	zoom    *forcetree.Zoom
}

func newRecorder() recorder {
	return recorder{transform: forcetree.Identity, frame: forcetree.Frame{Selected: -1, Hovered: -1}}
}

func (r *recorder) Mount(scene *forcetree.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = scene
	return nil
}

func (r *recorder) UpdatePositions(f forcetree.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = f
}

func (r *recorder) BindDrag(h forcetree.DragHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drag = h
}

func (r *recorder) BindPointer(h forcetree.PointerHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointer = h
}

func (r *recorder) BindZoom(z *forcetree.Zoom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zoom = z
}

func (r *recorder) ShowTooltip(t forcetree.Tooltip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tooltip = &t
}

func (r *recorder) HideTooltip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tooltip = nil
}

func (r *recorder) ApplyTransform(t forcetree.Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = t
}

func (r *recorder) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	return nil
}

// snapshot returns the recorded state as a layout plus the view state that
// a layout does not carry.
func (r *recorder) snapshot() (l layout.Layout, st viewState, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scene == nil {
		return layout.Layout{}, viewState{}, false
	}
	st = viewState{
		ID:        r.scene.ID,
		Transform: r.transform,
		Selected:  r.frame.Selected,
		Tooltip:   r.tooltip,
	}
	return forcetree.Snapshot(r.scene, r.frame), st, true
}

// viewState is the interactive state layered over a layout.
type viewState struct {
	ID        string
	Transform forcetree.Transform
	Selected  int
	Tooltip   *forcetree.Tooltip
}

func defaultState() viewState {
	return viewState{Transform: forcetree.Identity, Selected: -1}
}
