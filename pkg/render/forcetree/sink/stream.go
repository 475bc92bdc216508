package sink

import (
	"encoding/json"
	"sync"

	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// Event types sent to stream subscribers. They double as SSE event names.
const (
	EventFrame     = "frame"
	EventTooltip   = "tooltip"
	EventHide      = "hide"
	EventTransform = "transform"
	EventDispose   = "dispose"
)

// DefaultStreamBuffer is the per-subscriber channel capacity.
const DefaultStreamBuffer = 16

// Event is one message to a stream subscriber. Data is JSON.
type Event struct {
	Type string
	Data []byte
}

type frameData struct {
	Seq      int          `json:"seq"`
	Alpha    float64      `json:"alpha"`
	Nodes    [][2]float64 `json:"nodes"`
	Selected int          `json:"selected"`
	Hovered  int          `json:"hovered"`
}

type tooltipData struct {
	Node    int    `json:"node"`
	Heading string `json:"heading"`
	Path    string `json:"path"`
	HTML    string `json:"html"`
}

type transformData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Stream is a surface that fans view updates out to any number of
// subscribers, and routes input from them back to the view.
//
// Sends never block the simulation: a subscriber whose buffer is full
// misses that event. Late subscribers first receive the latest frame,
// transform and tooltip.
type Stream struct {
	mu     sync.Mutex
	buffer int
	scene  *forcetree.Scene
	subs   map[int]chan Event
	nextID int
	closed bool

	lastFrame     *Event
	lastTransform *Event
	lastTooltip   *Event
	dropped       int

	drag    forcetree.DragHandler
	pointer forcetree.PointerHandler
	zoom    *forcetree.Zoom
}

var _ forcetree.Surface = (*Stream)(nil)

// NewStream creates a stream surface with the given per-subscriber buffer.
// A buffer < 1 uses [DefaultStreamBuffer].
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{buffer: buffer, subs: make(map[int]chan Event)}
}

// Mount implements [forcetree.Surface].
func (s *Stream) Mount(scene *forcetree.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = scene
	return nil
}

// Scene returns the mounted scene, or nil.
func (s *Stream) Scene() *forcetree.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// UpdatePositions implements [forcetree.Surface].
func (s *Stream) UpdatePositions(f forcetree.Frame) {
	d := frameData{Seq: f.Seq, Alpha: f.Alpha, Nodes: make([][2]float64, len(f.Nodes)), Selected: f.Selected, Hovered: f.Hovered}
	for i, p := range f.Nodes {
		d.Nodes[i] = [2]float64{p.X, p.Y}
	}
	s.publish(EventFrame, d, &s.lastFrame)
}

// ShowTooltip implements [forcetree.Surface].
func (s *Stream) ShowTooltip(t forcetree.Tooltip) {
	s.publish(EventTooltip, tooltipData{Node: t.Node, Heading: t.Heading(), Path: t.Path, HTML: t.HTML()}, &s.lastTooltip)
}

// HideTooltip implements [forcetree.Surface].
func (s *Stream) HideTooltip() {
	s.mu.Lock()
	s.lastTooltip = nil
	s.mu.Unlock()
	s.publish(EventHide, struct{}{}, nil)
}

// ApplyTransform implements [forcetree.Surface].
func (s *Stream) ApplyTransform(t forcetree.Transform) {
	s.publish(EventTransform, transformData{X: t.X, Y: t.Y, K: t.K}, &s.lastTransform)
}

// BindDrag implements [forcetree.Surface].
func (s *Stream) BindDrag(h forcetree.DragHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = h
}

// BindPointer implements [forcetree.Surface].
func (s *Stream) BindPointer(h forcetree.PointerHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = h
}

// BindZoom implements [forcetree.Surface].
func (s *Stream) BindZoom(z *forcetree.Zoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = z
}

// Drag returns the bound drag handler, or nil before mount.
func (s *Stream) Drag() forcetree.DragHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag
}

// Pointer returns the bound pointer handler, or nil before mount.
func (s *Stream) Pointer() forcetree.PointerHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer
}

// Zoom returns the bound zoom behavior, or nil before mount.
func (s *Stream) Zoom() *forcetree.Zoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Subscribe registers a subscriber. The returned cancel function removes it
// and closes the channel; the channel is also closed when the stream is
// disposed.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, s.buffer+3)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	for _, e := range []*Event{s.lastFrame, s.lastTransform, s.lastTooltip} {
		if e != nil {
			ch <- *e
		}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped returns how many events were not delivered to full subscribers.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Dispose sends a final dispose event and closes every subscriber.
func (s *Stream) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		select {
		case ch <- Event{Type: EventDispose, Data: []byte("{}")}:
		default:
		}
		close(ch)
		delete(s.subs, id)
	}
	return nil
}

func (s *Stream) publish(typ string, v any, last **Event) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	e := Event{Type: typ, Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if last != nil {
		*last = &e
	}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.dropped++
		}
	}
}
