// Package session bundles everything one editing session owns.
//
// A [Session] wires a scene graph, the frame protocol host, the file-sync
// batcher, the materializer and the viewport navigator together so that:
//   - writes through [Session.FS] reach every preview frame as sync batches
//   - keyboard events from a frame reorder the selected element in source
//   - navigation intents from a frame move the canvas camera
//
// Sessions live only in memory. A [Registry] tracks the live ones:
//
//	reg := session.NewRegistry(session.Options{FS: vfs.NewMemFS(files)})
//	sess, err := reg.Create()
//	if err != nil {
//	    return err
//	}
//	defer reg.Close(ctx, sess.ID)
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/ghostcanvas/pkg/astwriter"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/filesync"
	"github.com/matzehuels/ghostcanvas/pkg/instrument"
	"github.com/matzehuels/ghostcanvas/pkg/materialize"
	"github.com/matzehuels/ghostcanvas/pkg/preview"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
	"github.com/matzehuels/ghostcanvas/pkg/source"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
	"github.com/matzehuels/ghostcanvas/pkg/viewport"
)

// Options configures new sessions.
type Options struct {
	// FS holds the project's source files. Required.
	FS vfs.FS

	Protocol    protocol.Options
	Sync        filesync.Options
	Viewport    viewport.Options
	Materialize materialize.Options

	// Instrumenter stamps files on their way to the frames. Nil uses a
	// default one.
	Instrumenter *instrument.Instrumenter

	// Pages maps routes to canvas cameras for navigation intents.
	Pages map[string]viewport.Camera

	Logger *log.Logger
}

// Session is one live editing session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Scene        *scene.Store              `json:"-"`
	Host         *protocol.Host            `json:"-"`
	Batcher      *filesync.Batcher         `json:"-"`
	Materializer *materialize.Materializer `json:"-"`
	Navigator    *viewport.Navigator       `json:"-"`
	// FS is the project VFS; every write through it is synced to frames.
	FS vfs.FS `json:"-"`

	pages  map[string]viewport.Camera
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	selected *protocol.SelectedElement
}

// New creates a session and wires its components.
func New(opts Options) (*Session, error) {
	if opts.FS == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "session needs a file system")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	in := opts.Instrumenter
	if in == nil {
		in = instrument.New(instrument.Options{Logger: logger})
	}

	id := uuid.NewString()
	logger = logger.With("session", id[:8])
	opts.Protocol.Logger = pick(opts.Protocol.Logger, logger)
	opts.Sync.Logger = pick(opts.Sync.Logger, logger)
	opts.Viewport.Logger = pick(opts.Viewport.Logger, logger)
	opts.Materialize.Logger = pick(opts.Materialize.Logger, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Scene:     scene.NewStore(),
		Host:      protocol.NewHost(opts.Protocol),
		Navigator: viewport.New(viewport.Camera{Zoom: 1}, opts.Viewport),
		pages:     opts.Pages,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.Batcher = filesync.New(preview.NewSink(in, s.Host, logger), opts.Sync)
	s.FS = vfs.NewNotifying(opts.FS, s.Batcher, logger)
	s.Materializer = materialize.New(s.Scene, s.Host, s.FS, opts.Materialize)

	s.Host.SetHandlers(protocol.Handlers{
		OnSelection: s.onSelection,
		OnKey:       s.onKey,
		OnNavigate:  s.onNavigate,
		OnFrameReady: func(frameID string) {
			logger.Debug("frame ready", "frame", frameID)
		},
	})
	return s, nil
}

func pick(l, fallback *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return fallback
}

// Selection returns the element last selected in any frame.
func (s *Session) Selection() (protocol.SelectedElement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return protocol.SelectedElement{}, false
	}
	return *s.selected, true
}

func (s *Session) onSelection(sel protocol.SelectedElement) {
	s.mu.Lock()
	s.selected = &sel
	s.mu.Unlock()
	s.logger.Debug("element selected", "tag", sel.TagName, "source", sel.Source, "page", sel.PageID)
}

// onKey moves the selected element one sibling along its parent's axis.
func (s *Session) onKey(ev protocol.KeyboardEvent) {
	step, ok := ev.Step()
	if !ok {
		return
	}
	s.mu.Lock()
	sel := s.selected
	s.mu.Unlock()
	if sel == nil || sel.Source == nil || sel.CorrelationID != ev.SelectionID {
		s.logger.Debug("key for unknown selection", "key", ev.Key, "selection", ev.SelectionID)
		return
	}

	dir := astwriter.Next
	if step < 0 {
		dir = astwriter.Prev
	}
	if _, err := s.Reorder(s.ctx, *sel.Source, dir); err != nil {
		if errors.IsInformational(err) {
			s.logger.Debug("element cannot move", "reason", errors.UserMessage(err))
			return
		}
		s.logger.Warn("reorder failed", "source", sel.Source, "err", err)
	}
}

// Reorder swaps the element at loc with its sibling and keeps the
// selection pointing at the moved element.
func (s *Session) Reorder(ctx context.Context, loc source.Location, dir astwriter.Direction) (source.Location, error) {
	newLoc, err := s.Materializer.Reorder(ctx, loc, dir)
	if err != nil {
		return loc, err
	}
	s.mu.Lock()
	if s.selected != nil && s.selected.Source != nil && *s.selected.Source == loc {
		moved := *s.selected
		moved.Source = &newLoc
		s.selected = &moved
	}
	s.mu.Unlock()
	return newLoc, nil
}

// Materialize commits a ghost node into source.
func (s *Session) Materialize(ctx context.Context, req materialize.Request) (materialize.Result, error) {
	return s.Materializer.Materialize(ctx, req)
}

func (s *Session) onNavigate(n protocol.NavigationIntent) {
	s.NavigateTo(s.ctx, n.TargetRoute)
}

// NavigateTo moves the camera to the route's page. Unknown routes switch
// route without moving the camera.
func (s *Session) NavigateTo(ctx context.Context, route string) <-chan viewport.Result {
	cam, ok := s.pages[route]
	if !ok {
		cam = s.Navigator.Camera()
	}
	return s.Navigator.Navigate(ctx, viewport.Target{Route: route, Camera: cam})
}

// Close flushes pending file batches and stops every component.
func (s *Session) Close(ctx context.Context) error {
	s.cancel()
	s.Navigator.Cancel()
	err := s.Batcher.Close(ctx)
	s.Host.Close()
	return err
}

// Registry keeps live sessions in memory.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry whose sessions share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, sessions: make(map[string]*Session)}
}

// Create starts a session.
func (r *Registry) Create() (*Session, error) {
	s, err := New(r.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q does not exist", id)
	}
	return s, nil
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close stops and forgets a session.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeSessionNotFound, "session %q does not exist", id)
	}
	return s.Close(ctx)
}

// CloseAll stops every session.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var first error
	for _, s := range all {
		if err := s.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
