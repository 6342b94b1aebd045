package protocol

import (
	"context"
	"sync"
)

// Frame is one preview frame's message channel.
type Frame interface {
	// ID identifies the frame's window; incoming messages name it as
	// their origin.
	ID() string
	// PageID is the page the frame renders.
	PageID() string
	// Send delivers a message without waiting for any reply.
	Send(ctx context.Context, msg Message) error
}

// State is a frame's lifecycle state as seen by the host.
type State int

const (
	Unloaded State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unloaded"
	}
}

// FrameState is the frame-side view of host broadcasts. Applying the same
// value twice is a no-op.
type FrameState struct {
	mu          sync.Mutex
	inspection  bool
	flowMode    bool
	placeholder *Placeholder
	files       map[string]string
	resets      int
}

// Apply updates the state from a host message and reports whether
// anything changed.
func (f *FrameState) Apply(msg Message) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch msg.Type {
	case TypeInspectionMode, TypeFlowModeState:
		var t Toggle
		if err := msg.Decode(&t); err != nil {
			return false, err
		}
		field := &f.inspection
		if msg.Type == TypeFlowModeState {
			field = &f.flowMode
		}
		if *field == t.Enabled {
			return false, nil
		}
		*field = t.Enabled
		return true, nil

	case TypeInsertPlaceholder:
		var p Placeholder
		if err := msg.Decode(&p); err != nil {
			return false, err
		}
		if f.placeholder != nil && *f.placeholder == p {
			return false, nil
		}
		f.placeholder = &p
		return true, nil

	case TypeRemovePlaceholder:
		if f.placeholder == nil {
			return false, nil
		}
		f.placeholder = nil
		return true, nil

	case TypeSyncFiles:
		var s SyncFiles
		if err := msg.Decode(&s); err != nil {
			return false, err
		}
		if f.files == nil {
			f.files = make(map[string]string)
		}
		changed := false
		if s.Kind == SyncFullReset {
			f.resets++
			changed = true
		}
		for p, text := range s.Updates {
			if old, ok := f.files[p]; !ok || old != text {
				f.files[p] = text
				changed = true
			}
		}
		for _, p := range s.Deletes {
			if _, ok := f.files[p]; ok {
				delete(f.files, p)
				changed = true
			}
		}
		return changed, nil
	}
	return false, nil
}

// Inspection reports the inspection-mode toggle.
func (f *FrameState) Inspection() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inspection
}

// FlowMode reports the flow-mode toggle.
func (f *FrameState) FlowMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flowMode
}

// Placeholder returns the optimistic placeholder, if any.
func (f *FrameState) Placeholder() (Placeholder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeholder == nil {
		return Placeholder{}, false
	}
	return *f.placeholder, true
}

// File returns a synced file's text.
func (f *FrameState) File(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.files[path]
	return text, ok
}

// Resets counts full-reset batches applied.
func (f *FrameState) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}
