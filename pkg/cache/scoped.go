package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several tenants (or
// the CLI and a server sharing one Redis) keep separate namespaces.
//
//	k := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "forcetree:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (DefaultKeyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayoutKey(ecosystemHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(ecosystemHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
