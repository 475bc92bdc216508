// Package pipeline runs forcetree's batch path: load an ecosystem, settle
// its force layout, and render the settled layout to one or more formats.
//
// The CLI render/layout commands and the server's render endpoint share this
// package so they agree on defaults, validation and caching.
//
// # Stages
//
//  1. Load: read an ecosystem from a file or raw bytes, optionally narrowed
//     to a subtree.
//  2. Layout: run the simulation headless until it cools ([ComputeLayout]).
//  3. Render: turn the layout into artifacts ([RenderFromLayout]).
//
// Layouts are cached under the ecosystem hash plus the simulation settings;
// artifacts under the layout hash plus the render settings.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "ecosystem.json",
//	    Formats: []string{pipeline.FormatSVG, pipeline.FormatHTML},
//	})
//	svg := res.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

// Output formats.
const (
	FormatSVG      = "svg"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// Formats lists every output format in display order.
var Formats = []string{FormatSVG, FormatHTML, FormatJSON, FormatDOT, FormatGraphviz, FormatPNG, FormatPDF}

// DefaultScale is the PNG scale factor.
const DefaultScale = 2.0

// Options configures a pipeline run. Zero simulation fields take the
// renderer defaults.
type Options struct {
	// Load. Exactly one of Path and Document is set; Document is decoded with
	// DocumentFormat (JSON when empty).
	Path           string           `json:"path,omitempty"`
	Document       []byte           `json:"-"`
	DocumentFormat ecosystem.Format `json:"format,omitempty"`
	// Root narrows rendering to the subtree at this path, e.g. "root/lib".
	Root    string `json:"root,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`

	// Layout
	Width        float64 `json:"width,omitempty"`
	Height       float64 `json:"height,omitempty"`
	Radius       float64 `json:"radius,omitempty"`
	LinkDistance float64 `json:"link_distance,omitempty"`
	LinkStrength float64 `json:"link_strength,omitempty"`
	Charge       float64 `json:"charge,omitempty"`

	// Render
	Formats []string `json:"formats,omitempty"`
	Title   string   `json:"title,omitempty"`
	// Style replaces the embedded stylesheet of SVG and HTML output.
	Style string  `json:"style,omitempty"`
	Scale float64 `json:"scale,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is the output of Runner.Execute.
type Result struct {
	Ecosystem *ecosystem.Node
	// EcosystemHash is the digest of the canonical ecosystem JSON.
	EcosystemHash string
	Layout        layout.Layout
	Artifacts     map[string][]byte
	Stats         Stats
	CacheInfo     CacheInfo
}

// Stats holds timing and size information for a run.
type Stats struct {
	NodeCount  int
	LinkCount  int
	Ticks      int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // every requested artifact was cached
}

// ValidateFormat checks a single format name.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateFormats checks every format name.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options of a full run and fills in
// defaults. Calling it again is a no-op.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input source.
func (o *Options) ValidateForLoad() error {
	switch {
	case o.Path == "" && len(o.Document) == 0:
		return errors.New(errors.ErrCodeInvalidInput, "an ecosystem path or document is required")
	case o.Path != "" && len(o.Document) > 0:
		return errors.New(errors.ErrCodeInvalidInput, "path and document are mutually exclusive")
	case o.Path != "":
		if err := errors.ValidatePath(o.Path); err != nil {
			return err
		}
	}
	if o.DocumentFormat == "" {
		o.DocumentFormat = ecosystem.FormatJSON
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults fills zero simulation settings with renderer defaults.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = forcetree.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = forcetree.DefaultHeight
	}
	if o.Radius == 0 {
		o.Radius = forcetree.DefaultRadius
	}
	if o.LinkStrength == 0 {
		o.LinkStrength = forcetree.DefaultLinkStrength
	}
	if o.Charge == 0 {
		o.Charge = forcetree.DefaultCharge
	}
	o.setLogger()
}

// ValidateForLayout applies layout defaults and rejects unusable sizes.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.Width < 0 || o.Height < 0 || o.Radius < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width, height and radius must be positive")
	}
	if o.LinkDistance < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "link distance must not be negative")
	}
	return nil
}

// SetRenderDefaults fills in the render defaults.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

// ValidateForRender applies render defaults and checks the formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive")
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// RenderOptions returns the renderer options for the simulation settings.
func (o *Options) RenderOptions() []forcetree.Option {
	return []forcetree.Option{
		forcetree.WithSize(o.Width, o.Height),
		forcetree.WithRadius(o.Radius),
		forcetree.WithLinkDistance(o.LinkDistance),
		forcetree.WithLinkStrength(o.LinkStrength),
		forcetree.WithCharge(o.Charge),
		forcetree.WithLogger(o.Logger),
	}
}

// LayoutKeyOpts returns the cache key inputs of the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:        o.Width,
		Height:       o.Height,
		Radius:       o.Radius,
		LinkDistance: o.LinkDistance,
		LinkStrength: o.LinkStrength,
		Charge:       o.Charge,
		Root:         o.Root,
	}
}

// ArtifactKeyOpts returns the cache key inputs of one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatSVG, FormatPNG, FormatPDF:
		k.Style = o.Style
	case FormatHTML:
		k.Style = o.Style
		k.Title = o.Title
	}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

func (o Options) String() string {
	src := o.Path
	if src == "" {
		src = fmt.Sprintf("<%d bytes %s>", len(o.Document), o.DocumentFormat)
	}
	return fmt.Sprintf("%s formats=%v", src, o.Formats)
}
