package force

import (
	"fmt"
	"math"
)

// Link connects two particles by index.
type Link struct {
	Source, Target int
}

// LinkForce pulls linked particles towards a target distance.
//
// By default the distance is 30 and the strength of each link is
// 1/min(degree(source), degree(target)), which weakens links attached to
// hubs. Setting a strength applies it to every link.
type LinkForce struct {
	links      []Link
	distance   float64
	strength   float64
	custom     bool
	iterations int

	nodes     []*Particle
	random    func() float64
	strengths []float64
	bias      []float64
}

// NewLink creates a link force over links.
func NewLink(links []Link) *LinkForce {
	return &LinkForce{links: links, distance: 30, iterations: 1}
}

// Distance sets the target distance of every link.
func (f *LinkForce) Distance(d float64) *LinkForce {
	f.distance = d
	return f
}

// Strength sets the strength of every link.
func (f *LinkForce) Strength(s float64) *LinkForce {
	f.strength, f.custom = s, true
	f.initialize()
	return f
}

// Iterations sets how many times the force is applied per step.
func (f *LinkForce) Iterations(n int) *LinkForce {
	f.iterations = n
	return f
}

// Links returns the links of the force.
func (f *LinkForce) Links() []Link { return f.links }

// Initialize implements [Force]. It panics if a link references a particle
// index outside nodes.
func (f *LinkForce) Initialize(nodes []*Particle, random func() float64) {
	f.nodes, f.random = nodes, random
	f.initialize()
}

func (f *LinkForce) initialize() {
	if f.nodes == nil {
		return
	}
	count := make([]int, len(f.nodes))
	for _, l := range f.links {
		if l.Source < 0 || l.Source >= len(f.nodes) || l.Target < 0 || l.Target >= len(f.nodes) {
			panic(fmt.Sprintf("force: link %d-%d references a missing particle", l.Source, l.Target))
		}
		count[l.Source]++
		count[l.Target]++
	}

	f.bias = make([]float64, len(f.links))
	f.strengths = make([]float64, len(f.links))
	for i, l := range f.links {
		cs, ct := float64(count[l.Source]), float64(count[l.Target])
		f.bias[i] = cs / (cs + ct)
		if f.custom {
			f.strengths[i] = f.strength
		} else {
			f.strengths[i] = 1 / math.Min(cs, ct)
		}
	}
}

// Apply implements [Force].
func (f *LinkForce) Apply(alpha float64) {
	for range f.iterations {
		for i, l := range f.links {
			src, tgt := f.nodes[l.Source], f.nodes[l.Target]

			x := tgt.X + tgt.VX - src.X - src.VX
			if x == 0 {
				x = jiggle(f.random)
			}
			y := tgt.Y + tgt.VY - src.Y - src.VY
			if y == 0 {
				y = jiggle(f.random)
			}

			d := math.Sqrt(x*x + y*y)
			d = (d - f.distance) / d * alpha * f.strengths[i]
			x *= d
			y *= d

			b := f.bias[i]
			tgt.VX -= x * b
			tgt.VY -= y * b
			b = 1 - b
			src.VX += x * b
			src.VY += y * b
		}
	}
}
