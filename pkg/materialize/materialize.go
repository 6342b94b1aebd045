// Package materialize commits draft scene nodes into source files and
// reorders existing markup.
//
// Both operations are all-or-nothing: the target file is read, every pure
// transform runs on the in-memory text, and only a fully successful
// result is written back through the VFS. A node leaves the scene graph
// only after its markup has been written.
package materialize

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ghostcanvas/pkg/astwriter"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/imports"
	"github.com/matzehuels/ghostcanvas/pkg/observability"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
	"github.com/matzehuels/ghostcanvas/pkg/source"
	"github.com/matzehuels/ghostcanvas/pkg/synth"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
)

// DefaultFile receives nodes dropped where no container answers.
const DefaultFile = "/App.tsx"

// Bridge is the part of the frame protocol the Materializer uses;
// *protocol.Host implements it.
type Bridge interface {
	FindDropTarget(ctx context.Context, frameID string, pt protocol.Point) (protocol.DropTarget, protocol.Outcome)
	InsertPlaceholder(ctx context.Context, p protocol.Placeholder) error
	RemovePlaceholder(ctx context.Context) error
}

// Options configures a Materializer.
type Options struct {
	// DefaultFile overrides DefaultFile.
	DefaultFile string
	Logger      *log.Logger
}

// Materializer turns ghost nodes into committed source.
type Materializer struct {
	store       *scene.Store
	bridge      Bridge
	fs          vfs.FS
	defaultFile string
	logger      *log.Logger

	// mu makes every read-modify-write of a file exclusive.
	mu sync.Mutex
}

// New creates a Materializer. bridge may be nil, in which case every drop
// falls back to the default file.
func New(store *scene.Store, bridge Bridge, fs vfs.FS, opts Options) *Materializer {
	m := &Materializer{
		store:       store,
		bridge:      bridge,
		fs:          fs,
		defaultFile: opts.DefaultFile,
		logger:      opts.Logger,
	}
	if m.defaultFile == "" {
		m.defaultFile = DefaultFile
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	return m
}

// Request describes one drop.
type Request struct {
	NodeID string `json:"nodeId"`
	// FrameID is the preview frame under the pointer; empty skips the
	// drop-target query.
	FrameID string         `json:"frameId,omitempty"`
	Point   protocol.Point `json:"point"`
	// File overrides the fallback file for this drop.
	File string `json:"file,omitempty"`
}

// Result describes a committed drop.
type Result struct {
	File string `json:"file"`
	// Location is where the inserted markup now starts.
	Location source.Location       `json:"location"`
	Imports  []imports.Requirement `json:"imports,omitempty"`
	// Fallback is true when the markup went into the fallback file's root
	// element because no container answered.
	Fallback bool             `json:"fallback"`
	Outcome  protocol.Outcome `json:"outcome,omitempty"`
}

// Materialize commits the node's subtree as the last child of the element
// under req.Point, or of the fallback file's root element when the frame
// reports no container or does not answer in time.
func (m *Materializer) Materialize(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	observability.Materialize().OnMaterializeStart(ctx, req.NodeID)
	defer func() {
		observability.Materialize().OnMaterializeComplete(ctx, req.NodeID, res.File, time.Since(start), err)
	}()

	node, ok := m.store.Node(req.NodeID)
	if !ok {
		return Result{}, errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", req.NodeID)
	}

	target, outcome := m.queryTarget(ctx, req, node)
	res.Outcome = outcome

	m.mu.Lock()
	defer m.mu.Unlock()

	// The query may have waited; everything below reads the store afresh.
	code, err := synth.Synthesize(m.store.Snapshot(), req.NodeID)
	if err != nil {
		return Result{}, err
	}

	file := m.defaultFile
	if req.File != "" {
		file = req.File
	}
	var loc source.Location
	if target.Usable() {
		loc = *target.Source
		file = loc.File
	} else {
		res.Fallback = true
	}

	text, err := m.fs.ReadFile(ctx, file)
	if err != nil {
		return Result{}, err
	}
	if res.Fallback {
		if loc, err = rootLocation(file, text); err != nil {
			return Result{}, err
		}
		m.logger.Debug("no drop container, using root element", "file", file, "outcome", outcome)
	}

	merged, err := imports.Merge(text, file, code.Imports)
	if err != nil {
		return Result{}, err
	}
	loc = merged.Shift(loc)

	ins, err := astwriter.InsertChildAtLocation(file, merged.Text, loc, code.Markup, astwriter.Last)
	if err != nil {
		return Result{}, err
	}
	if err := m.fs.WriteFile(ctx, file, ins.Text); err != nil {
		return Result{}, err
	}

	if err := m.store.RemoveNode(req.NodeID); err != nil {
		// Removed by someone else while we wrote; the markup stands.
		m.logger.Debug("node already gone after materialize", "node", req.NodeID, "err", err)
	}

	res.File = file
	res.Location = ins.Child
	res.Imports = merged.Added
	m.logger.Info("materialized node", "node", req.NodeID, "file", file, "at", ins.Child, "fallback", res.Fallback)
	return res, nil
}

// queryTarget shows a placeholder and asks the frame for the container
// under the drop point.
func (m *Materializer) queryTarget(ctx context.Context, req Request, node *scene.Node) (protocol.DropTarget, protocol.Outcome) {
	if m.bridge == nil || req.FrameID == "" {
		return protocol.DropTarget{}, protocol.OutcomeNoFrame
	}
	name := node.Component
	if name == "" {
		name = synth.ContainerTag
	}
	if err := m.bridge.InsertPlaceholder(ctx, protocol.Placeholder{X: req.Point.X, Y: req.Point.Y, ComponentName: name}); err != nil {
		m.logger.Debug("placeholder not shown", "err", err)
	}
	defer func() {
		if err := m.bridge.RemovePlaceholder(context.WithoutCancel(ctx)); err != nil {
			m.logger.Debug("placeholder not removed", "err", err)
		}
	}()
	return m.bridge.FindDropTarget(ctx, req.FrameID, req.Point)
}

// rootLocation returns the location of the file's outermost element.
func rootLocation(file, text string) (source.Location, error) {
	mode := source.ModeFor(file)
	if mode == source.ModeNone {
		return source.Location{}, errors.New(errors.ErrCodeUnsupported, "%s does not contain markup", file)
	}
	doc, err := source.ScanFile(file, text)
	if err != nil {
		return source.Location{}, err
	}
	root := doc.Outermost()
	if root == nil {
		return source.Location{}, errors.New(errors.ErrCodeSourceNotFound, "%s has no root element", file)
	}
	return doc.Location(file, root), nil
}

// Reorder swaps the element at loc with its sibling in dir and returns
// the element's new location. The boundary cases come back as
// informational errors (see errors.IsInformational) with the file
// untouched.
func (m *Materializer) Reorder(ctx context.Context, loc source.Location, dir astwriter.Direction) (newLoc source.Location, err error) {
	defer func() {
		observability.Materialize().OnReorder(ctx, loc.File, dir.String(), err)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	text, err := m.fs.ReadFile(ctx, loc.File)
	if err != nil {
		return loc, err
	}
	if err := astwriter.PreflightSwapSibling(loc.File, text, loc, dir); err != nil {
		return loc, err
	}
	out, newLoc, err := astwriter.SwapSiblingAtLocation(loc.File, text, loc, dir)
	if err != nil {
		return loc, err
	}
	if err := m.fs.WriteFile(ctx, loc.File, out); err != nil {
		return loc, err
	}
	m.logger.Debug("reordered element", "from", loc, "to", newLoc)
	return newLoc, nil
}
