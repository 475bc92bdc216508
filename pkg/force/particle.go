package force

import "math"

// Particle is a simulated node.
//
// Particles created by [NewParticles] have NaN positions and are placed on
// a phyllotaxis spiral when the simulation is created.
type Particle struct {
	Index  int
	X, Y   float64
	VX, VY float64

	fx, fy float64
	fixed  bool
}

// Point is a position snapshot.
type Point struct {
	X, Y float64
}

// NewParticles returns n unplaced particles.
func NewParticles(n int) []*Particle {
	ps := make([]*Particle, n)
	for i := range ps {
		ps[i] = &Particle{Index: i, X: math.NaN(), Y: math.NaN()}
	}
	return ps
}

// Pin fixes the particle at (x, y). Pinned particles ignore forces and have
// zero velocity after each step.
func (p *Particle) Pin(x, y float64) {
	p.fx, p.fy, p.fixed = x, y, true
}

// Unpin releases a pinned particle back to the forces.
func (p *Particle) Unpin() {
	p.fx, p.fy, p.fixed = 0, 0, false
}

// Fixed returns the pinned position, if any.
func (p *Particle) Fixed() (x, y float64, ok bool) {
	return p.fx, p.fy, p.fixed
}

func (p *Particle) point() Point { return Point{X: p.X, Y: p.Y} }
