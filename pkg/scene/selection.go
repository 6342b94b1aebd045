package scene

import "slices"

// Selection is a read-only view of the current selection.
type Selection struct {
	IDs     []string `json:"ids"`
	Primary string   `json:"primary,omitempty"`
}

// Contains reports whether id is selected.
func (s Selection) Contains(id string) bool { return slices.Contains(s.IDs, id) }

// Select marks id as selected and primary. Without additive the previous
// selection is replaced.
func (s *Store) Select(id string, additive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return notFound(id)
	}
	if !additive {
		s.selected = s.selected[:0]
	}
	if !slices.Contains(s.selected, id) {
		s.selected = append(s.selected, id)
	}
	s.primary = id
	return nil
}

// SelectMany replaces the selection with ids; the last id becomes primary.
// Unknown ids fail the whole call.
func (s *Store) SelectMany(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return notFound(id)
		}
	}
	s.setSelection(ids)
	return nil
}

// Deselect removes id from the selection. Demoting the primary promotes
// the most recently selected remaining id.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deselect(id)
}

func (s *Store) deselect(id string) {
	i := slices.Index(s.selected, id)
	if i < 0 {
		return
	}
	s.selected = slices.Delete(s.selected, i, i+1)
	if s.primary == id {
		s.promotePrimary()
	}
}

// ToggleSelection adds id when unselected and removes it otherwise.
func (s *Store) ToggleSelection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return notFound(id)
	}
	if slices.Contains(s.selected, id) {
		s.deselect(id)
		return nil
	}
	s.selected = append(s.selected, id)
	s.primary = id
	return nil
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.primary = ""
}

// Selection returns a copy of the current selection.
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Selection{IDs: slices.Clone(s.selected), Primary: s.primary}
}

func (s *Store) setSelection(ids []string) {
	s.selected = s.selected[:0]
	for _, id := range ids {
		if !slices.Contains(s.selected, id) {
			s.selected = append(s.selected, id)
		}
	}
	s.primary = ""
	s.promotePrimary()
}

func (s *Store) promotePrimary() {
	s.primary = ""
	if n := len(s.selected); n > 0 {
		s.primary = s.selected[n-1]
	}
}
