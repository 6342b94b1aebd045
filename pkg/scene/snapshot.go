package scene

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Snapshot is a deep, serializable copy of a store's state.
type Snapshot struct {
	Nodes     map[string]*Node `json:"nodes"`
	Roots     []string         `json:"roots"`
	Selection Selection        `json:"selection"`
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Nodes:     make(map[string]*Node, len(s.nodes)),
		Roots:     slices.Clone(s.roots),
		Selection: Selection{IDs: slices.Clone(s.selected), Primary: s.primary},
	}
	for id, n := range s.nodes {
		snap.Nodes[id] = n.Clone()
	}
	return snap
}

// Load replaces the store's state with snap after validating it.
// An invalid snapshot leaves the store unchanged.
func (s *Store) Load(snap *Snapshot) error {
	if err := snap.Check(); err != nil {
		return err
	}
	nodes := make(map[string]*Node, len(snap.Nodes))
	for id, n := range snap.Nodes {
		nodes[id] = n.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nodes
	s.roots = slices.Clone(snap.Roots)
	s.selected = slices.Clone(snap.Selection.IDs)
	s.primary = snap.Selection.Primary
	return nil
}

// Check verifies every structural invariant of the store.
func (s *Store) Check() error {
	return s.Snapshot().Check()
}

// Check verifies the snapshot's structural invariants: parent and child
// lists agree, every node is listed exactly once, the graph is acyclic and
// the selection refers to existing nodes.
func (snap *Snapshot) Check() error {
	listed := make(map[string]int, len(snap.Nodes))
	for _, id := range snap.Roots {
		n, ok := snap.Nodes[id]
		if !ok {
			return violation("root %q does not exist", id)
		}
		if n.ParentID != "" {
			return violation("root %q has parent %q", id, n.ParentID)
		}
		listed[id]++
	}
	for id, n := range snap.Nodes {
		if n.ID != id {
			return violation("node keyed %q carries id %q", id, n.ID)
		}
		if n.ParentID != "" {
			p, ok := snap.Nodes[n.ParentID]
			if !ok {
				return violation("node %q references missing parent %q", id, n.ParentID)
			}
			if !slices.Contains(p.Children, id) {
				return violation("node %q is missing from parent %q children", id, n.ParentID)
			}
		}
		for _, c := range n.Children {
			child, ok := snap.Nodes[c]
			if !ok {
				return violation("node %q lists missing child %q", id, c)
			}
			if child.ParentID != id {
				return violation("child %q of %q has parent %q", c, id, child.ParentID)
			}
			listed[c]++
		}
	}
	for id := range snap.Nodes {
		switch listed[id] {
		case 1:
		case 0:
			return violation("node %q is not linked into the graph", id)
		default:
			return violation("node %q is listed %d times", id, listed[id])
		}
		seen := map[string]bool{}
		for cur := id; cur != ""; cur = snap.Nodes[cur].ParentID {
			if seen[cur] {
				return violation("node %q is its own ancestor", id)
			}
			seen[cur] = true
		}
	}
	for _, id := range snap.Selection.IDs {
		if _, ok := snap.Nodes[id]; !ok {
			return violation("selected node %q does not exist", id)
		}
	}
	if p := snap.Selection.Primary; p != "" && !slices.Contains(snap.Selection.IDs, p) {
		return violation("primary %q is not selected", p)
	}
	return nil
}

// Walk visits nodes depth-first from the roots in child order, passing
// each node's depth.
func (snap *Snapshot) Walk(fn func(n *Node, depth int)) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := snap.Nodes[id]
		if !ok {
			return
		}
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range snap.Roots {
		visit(r, 0)
	}
}

// Hash returns a content hash of the snapshot's nodes and roots.
// Selection does not participate.
func (snap *Snapshot) Hash() string {
	// encoding/json sorts map keys, so the encoding is deterministic.
	data, _ := json.Marshal(struct {
		Nodes map[string]*Node `json:"nodes"`
		Roots []string         `json:"roots"`
	}{snap.Nodes, snap.Roots})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
