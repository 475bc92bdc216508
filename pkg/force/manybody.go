package force

import "math"

// ManyBody applies a force between every pair of particles: repulsion for
// negative strength (charge), attraction for positive (gravity).
//
// Distant groups of particles are approximated by their centroid using a
// Barnes-Hut quadtree; theta controls the accuracy of the approximation.
type ManyBody struct {
	strength     float64
	theta2       float64
	distanceMin2 float64
	distanceMax2 float64

	nodes  []*Particle
	random func() float64
}

// NewManyBody creates a many-body force with strength -30, theta 0.9,
// minimum distance 1 and no maximum distance.
func NewManyBody() *ManyBody {
	return &ManyBody{
		strength:     -30,
		theta2:       0.81,
		distanceMin2: 1,
		distanceMax2: math.Inf(1),
	}
}

// Strength sets the strength applied by every particle.
func (f *ManyBody) Strength(s float64) *ManyBody {
	f.strength = s
	return f
}

// Theta sets the Barnes-Hut approximation criterion.
func (f *ManyBody) Theta(t float64) *ManyBody {
	f.theta2 = t * t
	return f
}

// DistanceMin sets the distance below which the force is capped.
func (f *ManyBody) DistanceMin(d float64) *ManyBody {
	f.distanceMin2 = d * d
	return f
}

// DistanceMax sets the distance beyond which particles do not interact.
func (f *ManyBody) DistanceMax(d float64) *ManyBody {
	f.distanceMax2 = d * d
	return f
}

// Initialize implements [Force].
func (f *ManyBody) Initialize(nodes []*Particle, random func() float64) {
	f.nodes, f.random = nodes, random
}

// Apply implements [Force].
func (f *ManyBody) Apply(alpha float64) {
	if len(f.nodes) == 0 {
		return
	}
	tree := newQuadtree(f.nodes)
	tree.accumulate(f.strength)
	for _, n := range f.nodes {
		f.visit(tree, n, alpha)
	}
}

func (f *ManyBody) visit(q *quad, node *Particle, alpha float64) {
	if q.value == 0 {
		return
	}

	x, y := q.x-node.X, q.y-node.Y
	w := q.x1 - q.x0
	l := x*x + y*y

	// Far enough away: treat the whole cell as a single body.
	if w*w/f.theta2 < l {
		if l < f.distanceMax2 {
			if x == 0 {
				x = jiggle(f.random)
				l += x * x
			}
			if y == 0 {
				y = jiggle(f.random)
				l += y * y
			}
			if l < f.distanceMin2 {
				l = math.Sqrt(f.distanceMin2 * l)
			}
			node.VX += x * q.value * alpha / l
			node.VY += y * q.value * alpha / l
		}
		return
	}

	if !q.leaf {
		for _, c := range q.children {
			if c != nil {
				f.visit(c, node, alpha)
			}
		}
		return
	}
	if l >= f.distanceMax2 {
		return
	}

	if len(q.points) > 1 || q.points[0] != node {
		if x == 0 {
			x = jiggle(f.random)
			l += x * x
		}
		if y == 0 {
			y = jiggle(f.random)
			l += y * y
		}
		if l < f.distanceMin2 {
			l = math.Sqrt(f.distanceMin2 * l)
		}
	}
	for _, p := range q.points {
		if p == node {
			continue
		}
		s := f.strength * alpha / l
		node.VX += x * s
		node.VY += y * s
	}
}
