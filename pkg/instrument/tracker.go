package instrument

import (
	"context"
	"sync"
)

// Tracker remembers the last successfully instrumented text per path so a
// preview keeps serving a good version while the file does not parse.
type Tracker struct {
	in *Instrumenter

	mu       sync.Mutex
	lastGood map[string]string
}

// NewTracker wraps an Instrumenter.
func NewTracker(in *Instrumenter) *Tracker {
	return &Tracker{in: in, lastGood: make(map[string]string)}
}

// Update instruments text and returns the version to serve. When
// instrumentation fails the previous good version is returned (or the raw
// text if there is none) together with the error.
func (t *Tracker) Update(ctx context.Context, path, text string) (string, error) {
	r, err := t.in.Instrument(ctx, path, text)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		if prev, ok := t.lastGood[path]; ok {
			return prev, err
		}
		return text, err
	}
	t.lastGood[path] = r.Text
	return r.Text, nil
}

// Forget drops the remembered version of a deleted path.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	delete(t.lastGood, path)
	t.mu.Unlock()
}
