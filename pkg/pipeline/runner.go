package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcetree/pkg/cache"
	"github.com/matzehuels/forcetree/pkg/ecosystem"
	"github.com/matzehuels/forcetree/pkg/layout"
	"github.com/matzehuels/forcetree/pkg/observability"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner may serve concurrent runs with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner over c. A nil cache disables caching, a nil
// keyer selects cache.DefaultKeyer, and a nil logger uses log.Default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: cache.Instrument(c), Keyer: keyer, Logger: logger}
}

// Execute runs load, layout and render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	res := &Result{}

	loadStart := time.Now()
	root, hash, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	stats := root.Stats()
	res.Ecosystem = root
	res.EcosystemHash = hash
	res.Stats.NodeCount = stats.Nodes - 1
	res.Stats.LoadTime = time.Since(loadStart)
	r.Logger.Info("loaded ecosystem",
		"root", root.Path(),
		"nodes", res.Stats.NodeCount,
		"duration", res.Stats.LoadTime)

	layoutStart := time.Now()
	l, hit, err := r.LayoutWithCacheInfo(ctx, root, hash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Layout = l
	res.Stats.LinkCount = len(l.Links)
	res.Stats.Ticks = l.Ticks
	res.Stats.LayoutTime = time.Since(layoutStart)
	res.CacheInfo.LayoutHit = hit
	r.Logger.Info("computed layout",
		"nodes", len(l.Nodes),
		"ticks", l.Ticks,
		"cached", hit,
		"duration", res.Stats.LayoutTime)

	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(renderStart)
	res.CacheInfo.RenderHit = hit
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", res.Stats.RenderTime)

	return res, nil
}

// Load reads the ecosystem, reporting to the pipeline hooks.
func (r *Runner) Load(ctx context.Context, opts Options) (*ecosystem.Node, string, error) {
	r.applyLogger(&opts)
	source := opts.Path
	if source == "" {
		source = "document"
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()
	root, hash, err := Load(ctx, opts)
	n := 0
	if root != nil {
		n = len(root.Descendants())
	}
	hooks.OnLoadComplete(ctx, source, n, time.Since(start), err)
	return root, hash, err
}

// LayoutWithCacheInfo returns the settled layout of root, from the cache
// when possible. ecosystemHash is the hash returned by Load.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, root *ecosystem.Node, ecosystemHash string, opts Options) (layout.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, false, err
	}
	key := r.Keyer.LayoutKey(ecosystemHash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err != nil {
			r.Logger.Warn("layout cache read failed", "err", err)
		} else if hit {
			if l, err := layout.Unmarshal(data); err == nil {
				return l, true, nil
			}
			r.Logger.Debug("discarding unreadable cached layout", "key", key)
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(root.Descendants())-1)
	start := time.Now()
	l, err := ComputeLayout(ctx, root, opts)
	hooks.OnLayoutComplete(ctx, l.Ticks, time.Since(start), err)
	if err != nil {
		return layout.Layout{}, false, err
	}

	if data, err := layout.Marshal(l); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		}
	}
	return l, false, nil
}

// Layout is LayoutWithCacheInfo without the hit flag.
func (r *Runner) Layout(ctx context.Context, root *ecosystem.Node, ecosystemHash string, opts Options) (layout.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, root, ecosystemHash, opts)
	return l, err
}

// RenderWithCacheInfo renders l in every requested format. Cached artifacts
// are reused per format; the flag reports whether all of them were cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	data, err := layout.Marshal(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(data)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
			continue
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, missing)
	start := time.Now()
	rendered, err := RenderFromLayout(ctx, l, renderOpts)
	hooks.OnRenderComplete(ctx, missing, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("artifact cache write failed", "format", format, "err", err)
		}
	}
	return artifacts, false, nil
}

// Render is RenderWithCacheInfo without the hit flag.
func (r *Runner) Render(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
