package force

import (
	"context"
	"math"
	"sync"
	"time"
)

// Default simulation parameters.
const (
	DefaultAlphaMin      = 0.001
	DefaultVelocityDecay = 0.4
	DefaultInterval      = 16 * time.Millisecond
	DefaultSeed          = 1

	initialRadius  = 10.0
	maxSettleTicks = 10000
)

// DefaultAlphaDecay cools alpha from 1 to DefaultAlphaMin in 300 steps.
var DefaultAlphaDecay = 1 - math.Pow(DefaultAlphaMin, 1.0/300)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Force adjusts particle velocities once per step.
type Force interface {
	// Initialize is called when the force is added and whenever the
	// particle set changes. random is the simulation's seeded source.
	Initialize(nodes []*Particle, random func() float64)
	// Apply runs the force for the current alpha.
	Apply(alpha float64)
}

// TickFunc receives the particle positions after a step, indexed like the
// particles.
type TickFunc func(positions []Point)

// Option configures a Simulation.
type Option func(*Simulation)

// WithAlphaMin sets the alpha below which a running simulation stops.
func WithAlphaMin(v float64) Option { return func(s *Simulation) { s.alphaMin = v } }

// WithAlphaDecay sets the per-step cooling rate.
func WithAlphaDecay(v float64) Option { return func(s *Simulation) { s.alphaDecay = v } }

// WithAlphaTarget sets the alpha the simulation cools towards.
func WithAlphaTarget(v float64) Option { return func(s *Simulation) { s.alphaTarget = v } }

// WithVelocityDecay sets the fraction of velocity lost per step.
func WithVelocityDecay(v float64) Option { return func(s *Simulation) { s.velocityDecay = 1 - v } }

// WithInterval sets the period of the [Simulation.Run] timer.
func WithInterval(d time.Duration) Option { return func(s *Simulation) { s.interval = d } }

// WithSeed seeds the jiggle generator.
func WithSeed(seed uint32) Option { return func(s *Simulation) { s.random = lcg(seed) } }

// Simulation is a force-directed particle simulation.
// The zero value is not usable; use [New].
type Simulation struct {
	mu sync.Mutex

	nodes  []*Particle
	forces map[string]Force
	order  []string

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
	random        func() float64
	interval      time.Duration

	running bool
	wake    chan struct{}

	listenerMu sync.RWMutex
	onTick     []TickFunc
	onEnd      []func()
}

// New creates a simulation over nodes. Unplaced particles (NaN position)
// are arranged on a phyllotaxis spiral. The simulation starts hot (alpha 1)
// and marked running; nothing steps until [Simulation.Run] or
// [Simulation.Tick] is called.
func New(nodes []*Particle, opts ...Option) *Simulation {
	s := &Simulation{
		nodes:         nodes,
		forces:        make(map[string]Force),
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		alphaDecay:    DefaultAlphaDecay,
		velocityDecay: 1 - DefaultVelocityDecay,
		random:        lcg(DefaultSeed),
		interval:      DefaultInterval,
		running:       true,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initializeNodes()
	return s
}

func (s *Simulation) initializeNodes() {
	for i, n := range s.nodes {
		n.Index = i
		if n.fixed {
			n.X, n.Y = n.fx, n.fy
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			radius := initialRadius * math.Sqrt(0.5+float64(i))
			angle := float64(i) * initialAngle
			n.X = radius * math.Cos(angle)
			n.Y = radius * math.Sin(angle)
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
}

// AddForce registers f under name, replacing any force with that name.
// Forces apply in registration order.
func (s *Simulation) AddForce(name string, f Force) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forces[name]; !ok {
		s.order = append(s.order, name)
	}
	s.forces[name] = f
	f.Initialize(s.nodes, s.random)
}

// RemoveForce unregisters the force with the given name.
func (s *Simulation) RemoveForce(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forces[name]; !ok {
		return
	}
	delete(s.forces, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Force returns the force registered under name.
func (s *Simulation) Force(name string) (Force, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forces[name]
	return f, ok
}

// Len returns the number of particles.
func (s *Simulation) Len() int { return len(s.nodes) }

// Alpha returns the current energy level.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// SetAlpha sets the current energy level.
func (s *Simulation) SetAlpha(a float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alpha = a
}

// AlphaMin returns the stopping threshold.
func (s *Simulation) AlphaMin() float64 { return s.alphaMin }

// AlphaTarget returns the energy level alpha cools towards.
func (s *Simulation) AlphaTarget() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alphaTarget
}

// SetAlphaTarget sets the energy level alpha cools towards.
func (s *Simulation) SetAlphaTarget(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alphaTarget = t
}

// Running reports whether the timer loop is stepping.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Active reports whether alpha is at or above alphaMin.
func (s *Simulation) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha >= s.alphaMin
}

// Restart resumes stepping in [Simulation.Run]. Alpha is left unchanged.
func (s *Simulation) Restart() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop pauses stepping in [Simulation.Run] without ending the loop.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// OnTick registers fn to run after every step taken by [Simulation.Run].
func (s *Simulation) OnTick(fn TickFunc) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onTick = append(s.onTick, fn)
}

// OnEnd registers fn to run when [Simulation.Run] cools below alphaMin.
func (s *Simulation) OnEnd(fn func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// Tick advances the simulation n steps synchronously without emitting
// events and without regard to alphaMin.
func (s *Simulation) Tick(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.tick()
	}
}

// Settle steps synchronously until alpha drops below alphaMin and returns
// the number of steps taken. It gives up after a fixed bound when the alpha
// target keeps the simulation hot.
func (s *Simulation) Settle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for s.alpha >= s.alphaMin && n < maxSettleTicks {
		s.tick()
		n++
	}
	return n
}

// Step advances one step and emits the tick event, and the end event when
// alpha drops below alphaMin (which also stops the timer loop).
func (s *Simulation) Step() {
	s.mu.Lock()
	s.tick()
	positions := s.positions()
	cooled := s.alpha < s.alphaMin
	if cooled {
		s.running = false
	}
	s.mu.Unlock()

	s.listenerMu.RLock()
	tickFns := s.onTick
	endFns := s.onEnd
	s.listenerMu.RUnlock()

	for _, fn := range tickFns {
		fn(positions)
	}
	if cooled {
		for _, fn := range endFns {
			fn()
		}
	}
}

// Run drives the simulation with a timer until ctx is done. While running it
// calls [Simulation.Step] every interval; once the simulation cools it idles
// until [Simulation.Restart].
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.Running() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
				ticker.Reset(s.interval)
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Simulation) tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, name := range s.order {
		s.forces[name].Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.fixed {
			n.X, n.VX = n.fx, 0
			n.Y, n.VY = n.fy, 0
			continue
		}
		n.VX *= s.velocityDecay
		n.VY *= s.velocityDecay
		n.X += n.VX
		n.Y += n.VY
	}
}

func (s *Simulation) positions() []Point {
	out := make([]Point, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.point()
	}
	return out
}

// Positions returns a snapshot of all particle positions.
func (s *Simulation) Positions() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions()
}

// Position returns the position of particle i.
func (s *Simulation) Position(i int) Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[i].point()
}

// Pin fixes particle i at (x, y).
func (s *Simulation) Pin(i int, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[i].Pin(x, y)
}

// Unpin releases particle i.
func (s *Simulation) Unpin(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[i].Unpin()
}

// Fixed returns the pinned position of particle i, if any.
func (s *Simulation) Fixed(i int) (x, y float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[i].Fixed()
}

// Find returns the index of the particle closest to (x, y) within radius.
// A radius <= 0 means unbounded.
func (s *Simulation) Find(x, y, radius float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := math.Inf(1)
	if radius > 0 {
		best = radius * radius
	}
	found := -1
	for i, n := range s.nodes {
		dx, dy := x-n.X, y-n.Y
		if d2 := dx*dx + dy*dy; d2 < best {
			best, found = d2, i
		}
	}
	return found, found >= 0
}
