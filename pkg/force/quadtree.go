package force

import "math"

// maxQuadDepth bounds subdivision for nearly coincident particles. Deeper
// points share a leaf and are treated as one body.
const maxQuadDepth = 32

// quad is a node of a point-region quadtree carrying the aggregate charge
// of the particles below it.
type quad struct {
	x0, y0, x1, y1 float64

	leaf     bool
	children [4]*quad
	points   []*Particle

	value float64 // total strength
	x, y  float64 // strength-weighted centroid
}

// newQuadtree indexes nodes in a square quadtree covering all of them.
func newQuadtree(nodes []*Particle) *quad {
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		x0, y0 = math.Min(x0, n.X), math.Min(y0, n.Y)
		x1, y1 = math.Max(x1, n.X), math.Max(y1, n.Y)
	}
	if len(nodes) == 0 {
		x0, y0, x1, y1 = 0, 0, 1, 1
	}

	size := math.Max(x1-x0, y1-y0)
	if size == 0 {
		size = 1
	}
	root := &quad{x0: x0, y0: y0, x1: x0 + size, y1: y0 + size, leaf: true}
	for _, n := range nodes {
		root.insert(n, 0)
	}
	return root
}

func (q *quad) insert(p *Particle, depth int) {
	if q.leaf {
		if len(q.points) == 0 || depth >= maxQuadDepth || coincident(q.points[0], p) {
			q.points = append(q.points, p)
			return
		}
		existing := q.points
		q.points = nil
		q.leaf = false
		for _, e := range existing {
			q.child(e).insert(e, depth+1)
		}
	}
	q.child(p).insert(p, depth+1)
}

// child returns the quadrant containing p, creating it if needed.
func (q *quad) child(p *Particle) *quad {
	xm, ym := (q.x0+q.x1)/2, (q.y0+q.y1)/2
	i := 0
	if p.X >= xm {
		i |= 1
	}
	if p.Y >= ym {
		i |= 2
	}
	if q.children[i] == nil {
		c := &quad{x0: q.x0, y0: q.y0, x1: xm, y1: ym, leaf: true}
		if i&1 != 0 {
			c.x0, c.x1 = xm, q.x1
		}
		if i&2 != 0 {
			c.y0, c.y1 = ym, q.y1
		}
		q.children[i] = c
	}
	return q.children[i]
}

func coincident(a, b *Particle) bool { return a.X == b.X && a.Y == b.Y }

// accumulate computes value and centroid bottom-up for a uniform per-point
// strength.
func (q *quad) accumulate(strength float64) {
	if q.leaf {
		q.value = strength * float64(len(q.points))
		q.x, q.y = 0, 0
		for _, p := range q.points {
			q.x += p.X
			q.y += p.Y
		}
		if n := float64(len(q.points)); n > 0 {
			q.x /= n
			q.y /= n
		}
		return
	}

	var value, weight, x, y float64
	for _, c := range q.children {
		if c == nil {
			continue
		}
		c.accumulate(strength)
		if w := math.Abs(c.value); w > 0 {
			value += c.value
			weight += w
			x += w * c.x
			y += w * c.y
		}
	}
	q.value = value
	if weight > 0 {
		q.x, q.y = x/weight, y/weight
	}
}
