package scene

import (
	"math"
	"slices"
)

type groupConfig struct {
	layout *Layout
}

// GroupOption configures [Store.GroupSelection].
type GroupOption func(*groupConfig)

// WithLayout gives the new group an auto-layout. Members are then
// positioned by the layout rule instead of keeping their world positions.
func WithLayout(l Layout) GroupOption {
	return func(c *groupConfig) { c.layout = &l }
}

// GroupSelection wraps the selected nodes in a new frame and selects it.
//
// Members must share one parent; a mixed selection is narrowed to its
// root-level members. With fewer than two eligible members nothing
// changes and ok is false. The frame spans the members' world bounding
// box and is inserted where the first member sat in its parent.
func (s *Store) GroupSelection(opts ...GroupOption) (id string, ok bool) {
	var cfg groupConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.groupable()
	if len(members) < 2 {
		return "", false
	}
	parentID := s.nodes[members[0]].ParentID

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	world := make(map[string]Point, len(members))
	for _, m := range members {
		n := s.nodes[m]
		p := s.worldPosition(m)
		world[m] = p
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X+n.Width), max(maxY, p.Y+n.Height)
	}
	origin := s.worldPosition(parentID)

	group := &Node{
		ID:       s.newID(),
		Kind:     KindFrame,
		X:        minX - origin.X,
		Y:        minY - origin.Y,
		Width:    maxX - minX,
		Height:   maxY - minY,
		ParentID: parentID,
	}
	if cfg.layout != nil {
		l := *cfg.layout
		group.Layout = &l
	}

	at := s.indexIn(members[0])
	for _, m := range members {
		s.detach(m)
	}
	s.nodes[group.ID] = group
	s.attach(group.ID, parentID, at)

	for _, m := range members {
		s.attach(m, group.ID, -1)
		n := s.nodes[m]
		n.X, n.Y = world[m].X-minX, world[m].Y-minY
	}
	s.relayout(group.ID)
	s.relayout(parentID)

	s.setSelection([]string{group.ID})
	return group.ID, true
}

// groupable returns the selected ids eligible for grouping, ordered by
// their position in the shared parent's child list.
func (s *Store) groupable() []string {
	if len(s.selected) < 2 {
		return nil
	}
	parent := s.nodes[s.selected[0]].ParentID
	shared := true
	for _, id := range s.selected[1:] {
		if s.nodes[id].ParentID != parent {
			shared = false
			break
		}
	}
	if !shared {
		parent = ""
	}

	list := s.roots
	if parent != "" {
		list = s.nodes[parent].Children
	}
	var out []string
	for _, id := range list {
		if slices.Contains(s.selected, id) {
			out = append(out, id)
		}
	}
	return out
}

// UngroupNode dissolves a container: its children move to the container's
// former parent at the container's position (keeping their world
// positions), the container is deleted and its former children become the
// selection. Leaves and empty containers are left alone.
func (s *Store) UngroupNode(id string) (children []string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, exists := s.nodes[id]
	if !exists || !g.IsContainer() || len(g.Children) == 0 {
		return nil, false
	}
	children = slices.Clone(g.Children)
	parentID := g.ParentID

	world := make(map[string]Point, len(children))
	for _, c := range children {
		world[c] = s.worldPosition(c)
	}
	origin := s.worldPosition(parentID)

	at := s.indexIn(id)
	s.detach(id)
	delete(s.nodes, id)
	s.selected = slices.DeleteFunc(s.selected, func(sid string) bool { return sid == id })

	for i, c := range children {
		s.attach(c, parentID, at+i)
		n := s.nodes[c]
		n.X, n.Y = world[c].X-origin.X, world[c].Y-origin.Y
	}
	s.relayout(parentID)

	s.setSelection(children)
	return children, true
}
