package cache

// Keyer generates cache keys for each cached entry type.
type Keyer interface {
	// InstrumentKey generates a key for an instrumented copy of one file.
	InstrumentKey(path string, opts InstrumentKeyOpts) string

	// ArtifactKey generates a key for a rendered scene artifact.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// InstrumentKeyOpts identifies one instrumentation result.
type InstrumentKeyOpts struct {
	TextHash  string `json:"text_hash"`
	Attribute string `json:"attribute,omitempty"`
}

// ArtifactKeyOpts identifies one rendered scene artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// InstrumentKey hashes the path together with the options, so identical
// (path, text) pairs always map to the same key.
func (DefaultKeyer) InstrumentKey(path string, opts InstrumentKeyOpts) string {
	return hashKey("instrument", path, opts)
}

// ArtifactKey hashes the scene hash together with render options.
func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}
