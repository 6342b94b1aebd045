package scene

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// Store owns every node of one editing session's scene graph.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string

	selected []string // insertion order, most recent last
	primary  string

	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides uuid-based id generation (used in tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates an empty scene graph.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes: make(map[string]*Node),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh node id.
func (s *Store) NewID() string { return s.newID() }

func notFound(id string) error {
	return errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", id)
}

func violation(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvariantViolation, format, args...)
}

// AddNode inserts n. With a ParentID the node is appended to that parent's
// children, otherwise to the roots. An unknown parent is rejected rather
// than leaving a dangling reference. An empty ID is generated.
func (s *Store) AddNode(n Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.newID()
	}
	if _, exists := s.nodes[n.ID]; exists {
		return "", violation("node %q already exists", n.ID)
	}
	if n.Kind == "" {
		n.Kind = KindComponent
	}
	if len(n.Children) > 0 {
		return "", violation("node %q must be added without children; attach them with their own ParentID", n.ID)
	}
	var parent *Node
	if n.ParentID != "" {
		p, ok := s.nodes[n.ParentID]
		if !ok {
			return "", violation("parent %q of node %q does not exist", n.ParentID, n.ID)
		}
		if !p.IsContainer() {
			return "", violation("parent %q is a %s and cannot hold children", p.ID, p.Kind)
		}
		parent = p
	}

	node := n.Clone()
	node.Children = nil
	s.nodes[node.ID] = node
	if parent != nil {
		if !slices.Contains(parent.Children, node.ID) {
			parent.Children = append(parent.Children, node.ID)
		}
		s.relayout(parent.ID)
	} else {
		s.roots = append(s.roots, node.ID)
	}
	return node.ID, nil
}

// UpdateNode merges p into the node. A ParentID change detaches the node
// from its old location and attaches it to the new one in one step.
func (s *Store) UpdateNode(id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	oldParent := n.ParentID
	if p.ParentID != nil && *p.ParentID != oldParent {
		if err := s.checkReparent(id, *p.ParentID); err != nil {
			return err
		}
	}

	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
	if p.Component != nil {
		n.Component = *p.Component
	}
	if p.ImportPath != nil {
		n.ImportPath = *p.ImportPath
	}
	if p.Text != nil {
		n.Text = *p.Text
	}
	for k, v := range p.Props {
		if n.Props == nil {
			n.Props = make(map[string]string)
		}
		if v == "" {
			delete(n.Props, k)
		} else {
			n.Props[k] = v
		}
	}

	if p.ParentID != nil && *p.ParentID != oldParent {
		s.detach(id)
		s.attach(id, *p.ParentID, -1)
		s.relayout(oldParent)
	}
	s.relayout(n.ParentID)
	s.relayout(id)
	return nil
}

// MoveToParent reparents a node while keeping its world position.
// An empty parentID moves it to the roots.
func (s *Store) MoveToParent(id, parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	if n.ParentID == parentID {
		return nil
	}
	if err := s.checkReparent(id, parentID); err != nil {
		return err
	}
	world := s.worldPosition(id)
	origin := s.worldPosition(parentID)
	oldParent := n.ParentID

	s.detach(id)
	s.attach(id, parentID, -1)
	n.X, n.Y = world.X-origin.X, world.Y-origin.Y
	s.relayout(oldParent)
	s.relayout(parentID)
	return nil
}

// checkReparent validates moving id under parentID. Caller holds the lock.
func (s *Store) checkReparent(id, parentID string) error {
	if parentID == "" {
		return nil
	}
	p, ok := s.nodes[parentID]
	if !ok {
		return violation("parent %q does not exist", parentID)
	}
	if !p.IsContainer() {
		return violation("parent %q is a %s and cannot hold children", parentID, p.Kind)
	}
	for cur := parentID; cur != ""; cur = s.nodes[cur].ParentID {
		if cur == id {
			return violation("moving %q under %q would create a cycle", id, parentID)
		}
	}
	return nil
}

// detach removes id from its parent's children or from the roots.
func (s *Store) detach(id string) {
	n := s.nodes[id]
	if n.ParentID == "" {
		s.roots = slices.DeleteFunc(s.roots, func(r string) bool { return r == id })
		return
	}
	if p, ok := s.nodes[n.ParentID]; ok {
		p.Children = slices.DeleteFunc(p.Children, func(c string) bool { return c == id })
	}
	n.ParentID = ""
}

// attach inserts id under parentID (or the roots) at index; index < 0
// appends.
func (s *Store) attach(id, parentID string, index int) {
	n := s.nodes[id]
	n.ParentID = parentID
	list := &s.roots
	if parentID != "" {
		list = &s.nodes[parentID].Children
	}
	if index < 0 || index > len(*list) {
		*list = append(*list, id)
		return
	}
	*list = slices.Insert(*list, index, id)
}

// indexIn returns id's position in its parent's children or the roots.
func (s *Store) indexIn(id string) int {
	n := s.nodes[id]
	list := s.roots
	if n.ParentID != "" {
		list = s.nodes[n.ParentID].Children
	}
	return slices.Index(list, id)
}

// RemoveNode deletes the node and its whole subtree, detaches it from its
// parent and purges every removed id from the selection.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	parent := n.ParentID
	s.detach(id)

	removed := map[string]bool{}
	var drop func(string)
	drop = func(nid string) {
		node, ok := s.nodes[nid]
		if !ok {
			return
		}
		for _, c := range node.Children {
			drop(c)
		}
		delete(s.nodes, nid)
		removed[nid] = true
	}
	drop(id)

	s.selected = slices.DeleteFunc(s.selected, func(sid string) bool { return removed[sid] })
	if removed[s.primary] {
		s.promotePrimary()
	}
	s.relayout(parent)
	return nil
}

// SetLayout replaces the node's layout. A non-nil layout on a node with
// children immediately recomputes child positions and container size.
func (s *Store) SetLayout(id string, l *Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	if l != nil {
		if !n.IsContainer() {
			return violation("node %q is a %s and cannot have a layout", id, n.Kind)
		}
		if l.Direction != DirectionRow && l.Direction != DirectionColumn {
			return errors.New(errors.ErrCodeInvalidInput, "unknown layout direction %q", l.Direction)
		}
		cp := *l
		n.Layout = &cp
	} else {
		n.Layout = nil
	}
	s.relayout(id)
	return nil
}

// SetStyle replaces the node's style overrides.
func (s *Store) SetStyle(id string, style map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.Style = nil
	if len(style) > 0 {
		n.Style = make(map[string]string, len(style))
		for k, v := range style {
			n.Style[k] = v
		}
	}
	return nil
}

// Node returns a copy of the node.
func (s *Store) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Roots returns the root ids in order.
func (s *Store) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// WorldPosition returns the node's position with all ancestor offsets
// accumulated.
func (s *Store) WorldPosition(id string) (Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return Point{}, notFound(id)
	}
	return s.worldPosition(id), nil
}

// WorldRect returns the node's bounds in world coordinates.
func (s *Store) WorldRect(id string) (Rect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Rect{}, notFound(id)
	}
	p := s.worldPosition(id)
	return Rect{X: p.X, Y: p.Y, Width: n.Width, Height: n.Height}, nil
}

func (s *Store) worldPosition(id string) Point {
	var p Point
	for cur := id; cur != ""; {
		n, ok := s.nodes[cur]
		if !ok {
			break
		}
		p.X += n.X
		p.Y += n.Y
		cur = n.ParentID
	}
	return p
}

// Subtree returns copies of id and all its descendants keyed by id.
func (s *Store) Subtree(id string) (map[string]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, notFound(id)
	}
	out := make(map[string]*Node)
	var walk func(string)
	walk = func(nid string) {
		n := s.nodes[nid]
		out[nid] = n.Clone()
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(id)
	return out, nil
}
