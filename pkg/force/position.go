package force

// PositionX pulls particles towards a vertical line.
type PositionX struct {
	x        float64
	strength float64
	nodes    []*Particle
}

// NewPositionX creates a force towards x = 0 with strength 0.1.
func NewPositionX() *PositionX { return &PositionX{strength: 0.1} }

// X sets the target coordinate.
func (f *PositionX) X(x float64) *PositionX {
	f.x = x
	return f
}

// Strength sets the fraction of the distance closed per step at alpha 1.
func (f *PositionX) Strength(s float64) *PositionX {
	f.strength = s
	return f
}

// Initialize implements [Force].
func (f *PositionX) Initialize(nodes []*Particle, _ func() float64) { f.nodes = nodes }

// Apply implements [Force].
func (f *PositionX) Apply(alpha float64) {
	for _, n := range f.nodes {
		n.VX += (f.x - n.X) * f.strength * alpha
	}
}

// PositionY pulls particles towards a horizontal line.
type PositionY struct {
	y        float64
	strength float64
	nodes    []*Particle
}

// NewPositionY creates a force towards y = 0 with strength 0.1.
func NewPositionY() *PositionY { return &PositionY{strength: 0.1} }

// Y sets the target coordinate.
func (f *PositionY) Y(y float64) *PositionY {
	f.y = y
	return f
}

// Strength sets the fraction of the distance closed per step at alpha 1.
func (f *PositionY) Strength(s float64) *PositionY {
	f.strength = s
	return f
}

// Initialize implements [Force].
func (f *PositionY) Initialize(nodes []*Particle, _ func() float64) { f.nodes = nodes }

// Apply implements [Force].
func (f *PositionY) Apply(alpha float64) {
	for _, n := range f.nodes {
		n.VY += (f.y - n.Y) * f.strength * alpha
	}
}

// Center translates all particles so that their centroid moves towards a
// point. Unlike the other forces it changes positions, not velocities, and
// ignores alpha.
type Center struct {
	x, y     float64
	strength float64
	nodes    []*Particle
}

// NewCenter creates a centering force towards (x, y) with strength 1.
func NewCenter(x, y float64) *Center { return &Center{x: x, y: y, strength: 1} }

// Strength sets the fraction of the offset corrected per step.
func (f *Center) Strength(s float64) *Center {
	f.strength = s
	return f
}

// Initialize implements [Force].
func (f *Center) Initialize(nodes []*Particle, _ func() float64) { f.nodes = nodes }

// Apply implements [Force].
func (f *Center) Apply(float64) {
	if len(f.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range f.nodes {
		sx += n.X
		sy += n.Y
	}
	n := float64(len(f.nodes))
	sx = (sx/n - f.x) * f.strength
	sy = (sy/n - f.y) * f.strength
	for _, p := range f.nodes {
		p.X -= sx
		p.Y -= sy
	}
}
