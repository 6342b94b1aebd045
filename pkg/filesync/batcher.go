// Package filesync coalesces bursts of file writes into batches for the
// preview sandbox.
//
// Writes accumulate for a fixed window that opens with the first write.
// Within a window the latest write to a path wins, and a path deleted in
// the window is left out of the updates even if it was also written. The
// pending set is swapped out before a batch is delivered, so writes made
// while a batch is being applied start the next window instead of being
// lost.
package filesync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Defaults for [Options].
const (
	DefaultWindow             = 100 * time.Millisecond
	DefaultFullResetThreshold = 20
)

// ManifestPath is the dependency manifest; touching it forces a full reset.
const ManifestPath = "/package.json"

// ErrClosed is returned by operations on a closed Batcher.
var ErrClosed = errors.New("filesync: batcher closed")

// Kind selects how a batch is applied.
type Kind string

const (
	Incremental Kind = "incremental"
	FullReset   Kind = "full-reset"
)

// Batch is one coalesced set of changes.
type Batch struct {
	Kind    Kind
	Updates map[string]string
	Deletes []string
}

// Paths returns every path the batch touches, sorted.
func (b Batch) Paths() []string {
	out := make([]string, 0, len(b.Updates)+len(b.Deletes))
	for p := range b.Updates {
		out = append(out, p)
	}
	out = append(out, b.Deletes...)
	sort.Strings(out)
	return out
}

// Sink receives flushed batches.
type Sink interface {
	ApplyBatch(ctx context.Context, b Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, b Batch) error

// ApplyBatch calls f.
func (f SinkFunc) ApplyBatch(ctx context.Context, b Batch) error { return f(ctx, b) }

// Options configures a Batcher.
type Options struct {
	Window time.Duration
	// FullResetThreshold is the batch size above which a full reset is
	// cheaper than patching files one by one.
	FullResetThreshold int
	Logger             *log.Logger
}

// Batcher is the timer-driven write queue.
type Batcher struct {
	sink      Sink
	window    time.Duration
	threshold int
	logger    *log.Logger

	mu      sync.Mutex
	updates map[string]string
	deletes map[string]bool
	timer   *time.Timer
	closed  bool

	// flushMu serializes delivery so batches reach the sink in order.
	flushMu sync.Mutex
}

// New creates a Batcher delivering to sink.
func New(sink Sink, opts Options) *Batcher {
	b := &Batcher{
		sink:      sink,
		window:    opts.Window,
		threshold: opts.FullResetThreshold,
		logger:    opts.Logger,
		updates:   make(map[string]string),
		deletes:   make(map[string]bool),
	}
	if b.window <= 0 {
		b.window = DefaultWindow
	}
	if b.threshold <= 0 {
		b.threshold = DefaultFullResetThreshold
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	return b
}

// Update queues a write of text to path.
func (b *Batcher) Update(path, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.updates[path] = text
	b.armLocked()
	return nil
}

// Delete queues the removal of path.
func (b *Batcher) Delete(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.deletes[path] = true
	b.armLocked()
	return nil
}

// Pending returns the number of paths waiting for the next flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.deletes)
	for p := range b.updates {
		if !b.deletes[p] {
			n++
		}
	}
	return n
}

// armLocked starts the window on the first write after a flush. Later
// writes do not extend it.
func (b *Batcher) armLocked() {
	if b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.window, func() {
		if err := b.Flush(context.Background()); err != nil {
			b.logger.Warn("file sync failed", "err", err)
		}
	})
}

// take swaps out the pending set and classifies it.
func (b *Batcher) take() (Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.updates) == 0 && len(b.deletes) == 0 {
		return Batch{}, false
	}
	updates, deletes := b.updates, b.deletes
	b.updates = make(map[string]string)
	b.deletes = make(map[string]bool)

	batch := Batch{Kind: Incremental, Updates: make(map[string]string, len(updates))}
	for p, text := range updates {
		if !deletes[p] {
			batch.Updates[p] = text
		}
	}
	for p := range deletes {
		batch.Deletes = append(batch.Deletes, p)
	}
	sort.Strings(batch.Deletes)

	_, manifest := updates[ManifestPath]
	if manifest || deletes[ManifestPath] || len(batch.Updates)+len(batch.Deletes) > b.threshold {
		batch.Kind = FullReset
	}
	return batch, true
}

// Flush delivers pending changes now.
func (b *Batcher) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	batch, ok := b.take()
	if !ok {
		return nil
	}
	b.logger.Debug("flushing file batch", "kind", batch.Kind, "updates", len(batch.Updates), "deletes", len(batch.Deletes))
	return b.sink.ApplyBatch(ctx, batch)
}

// Close flushes what is pending and rejects further writes.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.Flush(ctx)
}
