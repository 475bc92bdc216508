package sink

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/matzehuels/forcetree/pkg/force"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

func TestStreamFansOut(t *testing.T) {
	s := NewStream(4)
	a, cancelA := s.Subscribe()
	b, cancelB := s.Subscribe()
	defer cancelA()
	defer cancelB()

	s.UpdatePositions(forcetree.Frame{Seq: 1, Nodes: []force.Point{{X: 1, Y: 2}}, Selected: -1, Hovered: -1})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		e := <-ch
		if e.Type != EventFrame {
			t.Errorf("%s: type = %q, want %q", name, e.Type, EventFrame)
		}
		var f frameData
		if err := json.Unmarshal(e.Data, &f); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if f.Seq != 1 || f.Nodes[0] != [2]float64{1, 2} {
			t.Errorf("%s: frame = %+v", name, f)
		}
	}
}

func TestStreamLateSubscriberCatchesUp(t *testing.T) {
	s := NewStream(4)
	s.UpdatePositions(forcetree.Frame{Seq: 7})
	s.ApplyTransform(forcetree.Transform{X: 1, Y: 1, K: 2})
	s.ShowTooltip(forcetree.Tooltip{Name: "x", Path: "r/x"})

	ch, cancel := s.Subscribe()
	defer cancel()

	var types []string
	for i := 0; i < 3; i++ {
		types = append(types, (<-ch).Type)
	}
	want := []string{EventFrame, EventTransform, EventTooltip}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("catch-up events = %v, want %v", types, want)
			break
		}
	}

	s.HideTooltip()
	if e := <-ch; e.Type != EventHide {
		t.Errorf("type = %q, want %q", e.Type, EventHide)
	}
	ch2, cancel2 := s.Subscribe()
	defer cancel2()
	if got := len(ch2); got != 2 {
		t.Errorf("catch-up after hide = %d events, want 2", got)
	}
}

func TestStreamDropsForSlowSubscribers(t *testing.T) {
	s := NewStream(1)
	_, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		s.UpdatePositions(forcetree.Frame{Seq: i})
	}
	if s.Dropped() == 0 {
		t.Error("a full subscriber should drop frames instead of blocking")
	}
}

func TestStreamCancel(t *testing.T) {
	s := NewStream(1)
	ch, cancel := s.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if s.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", s.Subscribers())
	}
}

func TestStreamDispose(t *testing.T) {
	s := NewStream(2)
	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if e := <-ch; e.Type != EventDispose {
		t.Errorf("type = %q, want %q", e.Type, EventDispose)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Dispose")
	}

	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after Dispose should return a closed channel")
	}
	s.UpdatePositions(forcetree.Frame{})
	if err := s.Dispose(); err != nil {
		t.Errorf("second Dispose: %v", err)
	}
}

func TestStreamRoutesInputToView(t *testing.T) {
	s := NewStream(0)
	v, err := forcetree.Render(context.Background(), sampleRoot(t), s, forcetree.WithStatic())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer v.Dispose()

	if s.Scene() == nil || len(s.Scene().Nodes) != 3 {
		t.Fatal("scene should be mounted")
	}
	s.Drag().DragStart(0)
	s.Drag().Drag(0, 9, 9)
	if x, y, ok := v.Simulation().Fixed(0); !ok || x != 9 || y != 9 {
		t.Errorf("Fixed() = %v, %v, %v, want 9, 9, true", x, y, ok)
	}
	s.Drag().DragEnd(0)

	s.Pointer().Click(2)
	if v.Selected() != 2 {
		t.Errorf("Selected() = %d, want 2", v.Selected())
	}
	if got := s.Zoom().ScaleTo(9).K; got != forcetree.MaxScale {
		t.Errorf("zoom K = %v, want %v", got, forcetree.MaxScale)
	}
}
