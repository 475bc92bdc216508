// Package config loads forcetree's TOML configuration file and applies
// FORCETREE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
)

const appName = "forcetree"

// Config is the contents of config.toml.
type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Render     RenderConfig     `toml:"render"`
	Cache      CacheConfig      `toml:"cache"`
	Server     ServerConfig     `toml:"server"`
}

// SimulationConfig holds the force settings shared by every command.
type SimulationConfig struct {
	Width        float64 `toml:"width"`
	Height       float64 `toml:"height"`
	Radius       float64 `toml:"radius"`
	LinkDistance float64 `toml:"link_distance"`
	LinkStrength float64 `toml:"link_strength"`
	Charge       float64 `toml:"charge"`
}

// RenderConfig holds output defaults.
type RenderConfig struct {
	Formats []string `toml:"formats"`
	Title   string   `toml:"title"`
	// Stylesheet is a CSS file replacing the embedded styles.
	Stylesheet string  `toml:"stylesheet"`
	Scale      float64 `toml:"scale"`
}

// CacheConfig controls the CLI file cache.
type CacheConfig struct {
	Disabled bool   `toml:"disabled"`
	Dir      string `toml:"dir"`
}

// ServerConfig configures `forcetree serve`.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
	MongoURI    string `toml:"mongo_uri"`
	MongoDB     string `toml:"mongo_database"`
	MaxViews    int    `toml:"max_views"`
	// ViewIdle disposes live views without subscribers after this long,
	// e.g. "10m". Empty disables the reaper.
	ViewIdle string `toml:"view_idle"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Width:        forcetree.DefaultWidth,
			Height:       forcetree.DefaultHeight,
			Radius:       forcetree.DefaultRadius,
			LinkDistance: forcetree.DefaultLinkDistance,
			LinkStrength: forcetree.DefaultLinkStrength,
			Charge:       forcetree.DefaultCharge,
		},
		Render: RenderConfig{
			Formats: []string{pipeline.FormatSVG},
			Scale:   pipeline.DefaultScale,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			RedisPrefix: "forcetree:",
			MongoDB:     "forcetree",
			MaxViews:    64,
			ViewIdle:    "10m",
		},
	}
}

// Dir returns $XDG_CONFIG_HOME/forcetree, falling back to ~/.config/forcetree.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName)
}

// Path returns the default config file location.
func Path() string { return filepath.Join(Dir(), "config.toml") }

// CacheDir returns $XDG_CACHE_HOME/forcetree, falling back to ~/.cache/forcetree.
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path (the default location when empty) over the defaults and
// applies environment overrides. A missing default file is not an error; a
// missing explicit path or a malformed file is.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	_, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects settings no command can use.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Width <= 0 || s.Height <= 0 || s.Radius <= 0 {
		return errors.New("simulation: width, height and radius must be positive")
	}
	if s.LinkDistance < 0 {
		return errors.New("simulation: link_distance must not be negative")
	}
	if err := pipeline.ValidateFormats(c.Render.Formats); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if c.Server.MaxViews < 0 {
		return errors.New("server: max_views must not be negative")
	}
	if _, err := c.Server.IdleTimeout(); err != nil {
		return err
	}
	return nil
}

// IdleTimeout parses ViewIdle; zero disables idle disposal.
func (s ServerConfig) IdleTimeout() (time.Duration, error) {
	if s.ViewIdle == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.ViewIdle)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("server: invalid view_idle %q", s.ViewIdle)
	}
	return d, nil
}

// PipelineOptions returns pipeline options seeded from the configuration.
// Callers set the input and may override any field.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	o := pipeline.Options{
		Width:        c.Simulation.Width,
		Height:       c.Simulation.Height,
		Radius:       c.Simulation.Radius,
		LinkDistance: c.Simulation.LinkDistance,
		LinkStrength: c.Simulation.LinkStrength,
		Charge:       c.Simulation.Charge,
		Formats:      append([]string(nil), c.Render.Formats...),
		Title:        c.Render.Title,
		Scale:        c.Render.Scale,
	}
	if c.Render.Stylesheet != "" {
		css, err := os.ReadFile(c.Render.Stylesheet)
		if err != nil {
			return o, fmt.Errorf("stylesheet: %w", err)
		}
		o.Style = string(css)
	}
	return o, nil
}

// RenderOptions returns the renderer options for live views.
func (c *Config) RenderOptions() []forcetree.Option {
	s := c.Simulation
	return []forcetree.Option{
		forcetree.WithSize(s.Width, s.Height),
		forcetree.WithRadius(s.Radius),
		forcetree.WithLinkDistance(s.LinkDistance),
		forcetree.WithLinkStrength(s.LinkStrength),
		forcetree.WithCharge(s.Charge),
	}
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "FORCETREE_ADDR")
	setString(&c.Server.RedisURL, "FORCETREE_REDIS_URL")
	setString(&c.Server.MongoURI, "FORCETREE_MONGO_URI")
	setString(&c.Cache.Dir, "FORCETREE_CACHE_DIR")
	if v := os.Getenv("FORCETREE_MAX_VIEWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FORCETREE_MAX_VIEWS: %w", err)
		}
		c.Server.MaxViews = n
	}
	if v := os.Getenv("FORCETREE_NO_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FORCETREE_NO_CACHE: %w", err)
		}
		c.Cache.Disabled = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
