package cache

// ScopedKeyer wraps a Keyer with a prefix for per-project isolation.
// Several projects can share one Redis instance without their
// instrumented copies colliding.
//
// Example usage:
//
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "project:landing-page:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// InstrumentKey generates a prefixed key for instrumentation caching.
func (k *ScopedKeyer) InstrumentKey(path string, opts InstrumentKeyOpts) string {
	return k.prefix + k.inner.InstrumentKey(path, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}
