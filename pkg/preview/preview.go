// Package preview pushes coalesced file batches to the preview frames,
// instrumenting markup files on the way.
package preview

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ghostcanvas/pkg/filesync"
	"github.com/matzehuels/ghostcanvas/pkg/instrument"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
)

// Publisher receives instrumented batches; *protocol.Host implements it.
type Publisher interface {
	SyncFiles(ctx context.Context, batch protocol.SyncFiles) error
}

// Sink is the filesync.Sink between the write queue and the frames.
type Sink struct {
	tracker *instrument.Tracker
	pub     Publisher
	logger  *log.Logger
}

// NewSink creates a Sink.
func NewSink(in *instrument.Instrumenter, pub Publisher, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{tracker: instrument.NewTracker(in), pub: pub, logger: logger}
}

// ApplyBatch instruments every updated file and publishes the batch. A
// file that fails to parse is published in its last good instrumented
// form so the preview keeps working.
func (s *Sink) ApplyBatch(ctx context.Context, b filesync.Batch) error {
	out := protocol.SyncFiles{
		Kind:    protocol.SyncIncremental,
		Updates: make(map[string]string, len(b.Updates)),
		Deletes: b.Deletes,
	}
	if b.Kind == filesync.FullReset {
		out.Kind = protocol.SyncFullReset
	}
	for path, text := range b.Updates {
		served, err := s.tracker.Update(ctx, path, text)
		if err != nil {
			s.logger.Warn("serving previous version", "path", path, "err", err)
		}
		out.Updates[path] = served
	}
	for _, path := range b.Deletes {
		s.tracker.Forget(path)
	}
	return s.pub.SyncFiles(ctx, out)
}

var _ filesync.Sink = (*Sink)(nil)
