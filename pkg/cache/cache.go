package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores opaque byte payloads under string keys.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero stores the entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs per entry kind.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Key kinds passed to the cache hooks.
const (
	KindLayout   = "layout"
	KindArtifact = "artifact"
)

// LayoutKeyOpts holds every simulation setting that changes a settled layout.
type LayoutKeyOpts struct {
	Width        float64 `json:"w"`
	Height       float64 `json:"h"`
	Radius       float64 `json:"r"`
	LinkDistance float64 `json:"ld"`
	LinkStrength float64 `json:"ls"`
	Charge       float64 `json:"c"`
	Root         string  `json:"root,omitempty"`
}

// ArtifactKeyOpts holds the settings that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"f"`
	Style  string  `json:"s,omitempty"`
	Title  string  `json:"t,omitempty"`
	Scale  float64 `json:"x,omitempty"`
}

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	LayoutKey(ecosystemHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the inputs of each key with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<hash>" for an ecosystem and simulation settings.
func (DefaultKeyer) LayoutKey(ecosystemHash string, opts LayoutKeyOpts) string {
	return hashKey(KindLayout, ecosystemHash, opts)
}

// ArtifactKey returns "artifact:<hash>" for a layout and render settings.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KindArtifact, layoutHash, opts)
}

// KindOf returns the key kind of a key produced by a Keyer, ignoring any scope
// prefix.
func KindOf(key string) string {
	end := strings.LastIndexByte(key, ':')
	if end < 0 {
		return ""
	}
	start := strings.LastIndexByte(key[:end], ':') + 1
	return key[start:end]
}
