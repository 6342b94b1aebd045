package protocol

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/ghostcanvas/pkg/observability"
)

// Defaults for [Options].
const (
	DefaultRequestTimeout   = 500 * time.Millisecond
	DefaultRebroadcastDelay = 50 * time.Millisecond
)

// Outcome is how a request resolved.
type Outcome string

const (
	OutcomeAnswered   Outcome = "answered"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeNoFrame    Outcome = "no-frame"
	OutcomeSendFailed Outcome = "send-failed"
)

// ErrUnknownOrigin is returned by [Host.Receive] for messages whose origin
// matches no registered frame. Such messages are dropped.
var ErrUnknownOrigin = errors.New("message from unknown frame")

// Options configures a Host.
type Options struct {
	// RequestTimeout bounds every request; zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	// RebroadcastDelay lets a fresh listener attach before toggles are
	// re-sent; zero means DefaultRebroadcastDelay.
	RebroadcastDelay time.Duration
	Logger           *log.Logger
}

// Handlers receive frame→host events. Nil handlers ignore the event.
type Handlers struct {
	OnSelection func(SelectedElement)
	OnKey       func(KeyboardEvent)
	OnNavigate  func(NavigationIntent)
	// OnFrameReady runs after a frame reports its inspector is ready.
	OnFrameReady func(frameID string)
}

type frameEntry struct {
	frame Frame
	state State
}

type pending struct {
	id     string
	frame  string
	answer chan Message
	cancel chan Outcome
}

// Host is the editor's end of every frame channel.
type Host struct {
	timeout time.Duration
	delay   time.Duration
	logger  *log.Logger

	mu         sync.Mutex
	frames     map[string]*frameEntry
	inspection bool
	flowMode   bool
	handlers   Handlers
	pending    *pending
	timers     map[*time.Timer]struct{}
	closed     bool
}

// NewHost creates a Host with no frames.
func NewHost(opts Options) *Host {
	h := &Host{
		timeout: opts.RequestTimeout,
		delay:   opts.RebroadcastDelay,
		logger:  opts.Logger,
		frames:  make(map[string]*frameEntry),
		timers:  make(map[*time.Timer]struct{}),
	}
	if h.timeout <= 0 {
		h.timeout = DefaultRequestTimeout
	}
	if h.delay <= 0 {
		h.delay = DefaultRebroadcastDelay
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// SetHandlers replaces the event handlers.
func (h *Host) SetHandlers(hs Handlers) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = hs
}

// Register adds a frame in the Loading state. Re-registering an id
// replaces the previous channel, as happens when a frame reloads.
func (h *Host) Register(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames[f.ID()] = &frameEntry{frame: f, state: Loading}
	h.logger.Debug("frame registered", "frame", f.ID(), "page", f.PageID())
}

// Unregister removes a frame. A request waiting on it resolves negatively.
func (h *Host) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(id)
}

// Release unregisters f only if it is still the channel registered under
// its id, so a closing connection cannot evict the one that replaced it.
func (h *Host) Release(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.frames[f.ID()]; ok && e.frame == f {
		h.unregisterLocked(f.ID())
	}
}

func (h *Host) unregisterLocked(id string) {
	delete(h.frames, id)
	if h.pending != nil && h.pending.frame == id {
		h.cancelPendingLocked(OutcomeCancelled)
	}
	h.logger.Debug("frame unregistered", "frame", id)
}

// State returns a frame's lifecycle state.
func (h *Host) State(id string) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.frames[id]; ok {
		return e.state
	}
	return Unloaded
}

// Frames returns the ids of registered frames.
func (h *Host) Frames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.frames))
	for id := range h.frames {
		ids = append(ids, id)
	}
	return ids
}

// Toggles returns the current inspection and flow-mode values.
func (h *Host) Toggles() (inspection, flowMode bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inspection, h.flowMode
}

// SetInspection changes the inspection toggle and schedules a rebroadcast
// to every frame.
func (h *Host) SetInspection(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inspection = enabled
	h.scheduleRebroadcastLocked("")
}

// SetFlowMode changes the flow-mode toggle and schedules a rebroadcast to
// every frame.
func (h *Host) SetFlowMode(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flowMode = enabled
	h.scheduleRebroadcastLocked("")
}

// NotifyIdle records that the sandbox build settled.
func (h *Host) NotifyIdle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduleRebroadcastLocked("")
}

// scheduleRebroadcastLocked re-sends both toggles after the delay, to one
// frame or (target == "") to all. Values are read when the timer fires.
func (h *Host) scheduleRebroadcastLocked(target string) {
	if h.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(h.delay, func() {
		h.mu.Lock()
		delete(h.timers, t)
		if h.closed {
			h.mu.Unlock()
			return
		}
		var targets []Frame
		for id, e := range h.frames {
			if target == "" || id == target {
				targets = append(targets, e.frame)
			}
		}
		inspection, flow := h.inspection, h.flowMode
		h.mu.Unlock()

		ctx := context.Background()
		for _, f := range targets {
			h.send(ctx, f, TypeInspectionMode, Toggle{Enabled: inspection})
			h.send(ctx, f, TypeFlowModeState, Toggle{Enabled: flow})
		}
	})
	h.timers[t] = struct{}{}
}

func (h *Host) send(ctx context.Context, f Frame, typ string, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("encode message", "type", typ, "err", err)
		return
	}
	h.sendMessage(ctx, f, msg)
}

func (h *Host) sendMessage(ctx context.Context, f Frame, msg Message) bool {
	observability.Protocol().OnSend(ctx, f.ID(), msg.Type)
	if err := f.Send(ctx, msg); err != nil {
		h.logger.Warn("send to frame failed", "frame", f.ID(), "type", msg.Type, "err", err)
		return false
	}
	return true
}

// Broadcast sends a fire-and-forget message to every frame.
func (h *Host) Broadcast(ctx context.Context, typ string, payload any) error {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		return err
	}
	h.mu.Lock()
	targets := make([]Frame, 0, len(h.frames))
	for _, e := range h.frames {
		targets = append(targets, e.frame)
	}
	h.mu.Unlock()

	for _, f := range targets {
		h.sendMessage(ctx, f, msg)
	}
	return nil
}

// InsertPlaceholder shows an optimistic placeholder in every frame.
func (h *Host) InsertPlaceholder(ctx context.Context, p Placeholder) error {
	return h.Broadcast(ctx, TypeInsertPlaceholder, p)
}

// RemovePlaceholder removes the optimistic placeholder from every frame.
func (h *Host) RemovePlaceholder(ctx context.Context) error {
	return h.Broadcast(ctx, TypeRemovePlaceholder, nil)
}

// SyncFiles pushes a file batch to every frame. A full reset reloads the
// frames, so they go back to Loading until their inspector reports ready.
func (h *Host) SyncFiles(ctx context.Context, batch SyncFiles) error {
	if batch.Kind == SyncFullReset {
		h.mu.Lock()
		for _, e := range h.frames {
			e.state = Loading
		}
		h.mu.Unlock()
	}
	return h.Broadcast(ctx, TypeSyncFiles, batch)
}

// Receive handles one message from the frame identified by origin.
// Messages from unregistered origins are dropped with ErrUnknownOrigin.
func (h *Host) Receive(ctx context.Context, origin string, msg Message) error {
	h.mu.Lock()
	entry, ok := h.frames[origin]
	if !ok {
		h.mu.Unlock()
		h.logger.Debug("dropping message from unknown frame", "origin", origin, "type", msg.Type)
		return ErrUnknownOrigin
	}
	page := entry.frame.PageID()
	handlers := h.handlers
	h.mu.Unlock()

	observability.Protocol().OnReceive(ctx, origin, msg.Type)

	switch msg.Type {
	case TypeInspectorReady:
		h.mu.Lock()
		if e, ok := h.frames[origin]; ok {
			e.state = Ready
		}
		h.scheduleRebroadcastLocked(origin)
		h.mu.Unlock()
		if handlers.OnFrameReady != nil {
			handlers.OnFrameReady(origin)
		}

	case TypeSandboxIdle:
		h.NotifyIdle()

	case TypeElementSelected, TypeSelectionRevalidated:
		var sel SelectedElement
		if err := msg.Decode(&sel); err != nil {
			return err
		}
		sel.PageID = page
		if handlers.OnSelection != nil {
			handlers.OnSelection(sel)
		}

	case TypeDropTargetFound:
		h.mu.Lock()
		p := h.pending
		if p != nil && p.id == msg.RequestID && p.frame == origin {
			select {
			case p.answer <- msg:
			default:
			}
		} else {
			h.logger.Debug("dropping stale reply", "requestId", msg.RequestID)
		}
		h.mu.Unlock()

	case TypeKeyboardEvent:
		var k KeyboardEvent
		if err := msg.Decode(&k); err != nil {
			return err
		}
		k.PageID = page
		if handlers.OnKey != nil {
			handlers.OnKey(k)
		}

	case TypeNavigationIntent:
		var n NavigationIntent
		if err := msg.Decode(&n); err != nil {
			return err
		}
		n.PageID = page
		if handlers.OnNavigate != nil {
			handlers.OnNavigate(n)
		}

	default:
		h.logger.Debug("ignoring message", "type", msg.Type, "frame", origin)
	}
	return nil
}

// FindDropTarget asks a frame which element lies under (x, y).
//
// It never blocks past the request timeout. A timeout, a newer request,
// a closed host or ctx cancellation all resolve to the zero DropTarget.
func (h *Host) FindDropTarget(ctx context.Context, frameID string, pt Point) (DropTarget, Outcome) {
	start := time.Now()
	resolve := func(d DropTarget, o Outcome) (DropTarget, Outcome) {
		observability.Protocol().OnRequestResolved(ctx, TypeFindDropTarget, string(o), time.Since(start))
		if o != OutcomeAnswered {
			h.logger.Debug("drop target query resolved negatively", "frame", frameID, "outcome", o)
		}
		return d, o
	}

	msg, err := NewMessage(TypeFindDropTarget, pt)
	if err != nil {
		return resolve(DropTarget{}, OutcomeSendFailed)
	}
	msg.RequestID = uuid.NewString()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return resolve(DropTarget{}, OutcomeCancelled)
	}
	h.cancelPendingLocked(OutcomeSuperseded)
	entry, ok := h.frames[frameID]
	if !ok {
		h.mu.Unlock()
		return resolve(DropTarget{}, OutcomeNoFrame)
	}
	p := &pending{
		id:     msg.RequestID,
		frame:  frameID,
		answer: make(chan Message, 1),
		cancel: make(chan Outcome, 1),
	}
	h.pending = p
	h.mu.Unlock()

	defer h.clearPending(p)

	if !h.sendMessage(ctx, entry.frame, msg) {
		return resolve(DropTarget{}, OutcomeSendFailed)
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case reply := <-p.answer:
		var d DropTarget
		if err := reply.Decode(&d); err != nil {
			h.logger.Warn("malformed drop target reply", "err", err)
			return resolve(DropTarget{}, OutcomeAnswered)
		}
		return resolve(d, OutcomeAnswered)
	case o := <-p.cancel:
		return resolve(DropTarget{}, o)
	case <-timer.C:
		return resolve(DropTarget{}, OutcomeTimeout)
	case <-ctx.Done():
		return resolve(DropTarget{}, OutcomeCancelled)
	}
}

func (h *Host) cancelPendingLocked(o Outcome) {
	if h.pending == nil {
		return
	}
	select {
	case h.pending.cancel <- o:
	default:
	}
	h.pending = nil
}

func (h *Host) clearPending(p *pending) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == p {
		h.pending = nil
	}
}

// Close cancels any pending request and stops scheduled rebroadcasts.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.cancelPendingLocked(OutcomeCancelled)
	for t := range h.timers {
		t.Stop()
	}
	clear(h.timers)
}
