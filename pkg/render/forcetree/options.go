package forcetree

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcetree/pkg/force"
)

// Defaults of the rendered view.
const (
	DefaultWidth  = 200.0
	DefaultHeight = 200.0
	DefaultRadius = 3.5

	DefaultLinkDistance = 0.0
	DefaultLinkStrength = 1.0
	DefaultCharge       = -50.0

	MinScale = 0.5
	MaxScale = 4.0

	// DragAlphaTarget keeps the simulation warm while any node is dragged.
	DragAlphaTarget = 0.3
)

// Option configures [Render].
type Option func(*config)

type config struct {
	width, height float64
	radius        float64
	linkDistance  float64
	linkStrength  float64
	charge        float64
	static        bool
	simulation    []force.Option
	logger        *log.Logger
}

func newConfig(opts ...Option) config {
	c := config{
		width:        DefaultWidth,
		height:       DefaultHeight,
		radius:       DefaultRadius,
		linkDistance: DefaultLinkDistance,
		linkStrength: DefaultLinkStrength,
		charge:       DefaultCharge,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// WithSize sets the view box size. The view box is centered on the origin.
func WithSize(width, height float64) Option {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithRadius sets the node radius.
func WithRadius(r float64) Option { return func(c *config) { c.radius = r } }

// WithLinkDistance sets the target length of every link.
func WithLinkDistance(d float64) Option { return func(c *config) { c.linkDistance = d } }

// WithLinkStrength sets the strength of every link.
func WithLinkStrength(s float64) Option { return func(c *config) { c.linkStrength = s } }

// WithCharge sets the many-body strength. Negative values repel.
func WithCharge(s float64) Option { return func(c *config) { c.charge = s } }

// WithStatic settles the layout synchronously inside Render instead of
// starting the simulation loop.
func WithStatic() Option { return func(c *config) { c.static = true } }

// WithSimulation passes options to the underlying simulation.
func WithSimulation(opts ...force.Option) Option {
	return func(c *config) { c.simulation = append(c.simulation, opts...) }
}

// WithLogger sets the logger for view lifecycle messages.
func WithLogger(l *log.Logger) Option { return func(c *config) { c.logger = l } }
