package forcetree

import (
	"math"
	"sync"

	"github.com/matzehuels/forcetree/pkg/force"
)

// Zoom is a pan and zoom behavior with a clamped scale.
//
// Every change is reported to the listener set by the view, which forwards
// it to [Surface.ApplyTransform].
type Zoom struct {
	mu       sync.Mutex
	min, max float64
	width    float64
	height   float64
	t        Transform
	onChange func(Transform)
}

// NewZoom creates a zoom behavior over a width x height extent with the
// scale limited to [minScale, maxScale].
func NewZoom(width, height, minScale, maxScale float64) *Zoom {
	return &Zoom{min: minScale, max: maxScale, width: width, height: height, t: Identity}
}

// ScaleExtent returns the scale limits.
func (z *Zoom) ScaleExtent() (minScale, maxScale float64) { return z.min, z.max }

// Extent returns the viewport size the behavior operates on.
func (z *Zoom) Extent() (width, height float64) { return z.width, z.height }

// Transform returns the current transform.
func (z *Zoom) Transform() Transform {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.t
}

// Clamp limits k to the scale extent. NaN maps to the lower limit.
func (z *Zoom) Clamp(k float64) float64 {
	if math.IsNaN(k) {
		return z.min
	}
	return math.Max(z.min, math.Min(z.max, k))
}

// ScaleTo sets the scale to k, keeping the center of the extent fixed.
func (z *Zoom) ScaleTo(k float64) Transform {
	z.mu.Lock()
	c := z.center()
	t := z.scaleAbout(z.Clamp(k), c)
	return z.commit(t)
}

// ScaleBy multiplies the scale by factor, keeping the view point (px, py)
// fixed.
func (z *Zoom) ScaleBy(factor, px, py float64) Transform {
	z.mu.Lock()
	t := z.scaleAbout(z.Clamp(z.t.K*factor), force.Point{X: px, Y: py})
	return z.commit(t)
}

// TranslateBy pans by (dx, dy) view units.
func (z *Zoom) TranslateBy(dx, dy float64) Transform {
	z.mu.Lock()
	t := z.t
	t.X += dx
	t.Y += dy
	return z.commit(t)
}

// Set replaces the transform; the scale is clamped.
func (z *Zoom) Set(t Transform) Transform {
	z.mu.Lock()
	t.K = z.Clamp(t.K)
	return z.commit(t)
}

// Reset restores the identity transform.
func (z *Zoom) Reset() Transform { return z.Set(Identity) }

// center is the middle of the extent. View boxes are centered on the
// origin.
func (z *Zoom) center() force.Point { return force.Point{} }

func (z *Zoom) scaleAbout(k float64, p force.Point) Transform {
	g := z.t.Invert(p)
	return Transform{X: p.X - g.X*k, Y: p.Y - g.Y*k, K: k}
}

// commit stores t, releases the lock taken by the caller and notifies the
// listener.
func (z *Zoom) commit(t Transform) Transform {
	z.t = t
	fn := z.onChange
	z.mu.Unlock()
	if fn != nil {
		fn(t)
	}
	return t
}

func (z *Zoom) setListener(fn func(Transform)) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.onChange = fn
}
