package scene

// AutoLayout places children sequentially from (0,0) along the primary
// axis, each offset by the previous child's extent plus gap. The container
// size is the sum of primary-axis extents plus gaps by the largest
// cross-axis extent.
func AutoLayout(sizes []Size, l Layout) ([]Point, Size) {
	positions := make([]Point, len(sizes))
	var primary, cross float64
	for i, s := range sizes {
		if i > 0 {
			primary += l.Gap
		}
		if l.Direction == DirectionColumn {
			positions[i] = Point{X: 0, Y: primary}
			primary += s.Height
			cross = max(cross, s.Width)
		} else {
			positions[i] = Point{X: primary, Y: 0}
			primary += s.Width
			cross = max(cross, s.Height)
		}
	}
	if l.Direction == DirectionColumn {
		return positions, Size{Width: cross, Height: primary}
	}
	return positions, Size{Width: primary, Height: cross}
}

// relayout applies the container's layout to its children in place.
// The caller holds the store lock.
func (s *Store) relayout(id string) {
	n, ok := s.nodes[id]
	if !ok || n.Layout == nil || len(n.Children) == 0 {
		return
	}
	sizes := make([]Size, len(n.Children))
	for i, cid := range n.Children {
		c := s.nodes[cid]
		sizes[i] = Size{Width: c.Width, Height: c.Height}
	}
	positions, size := AutoLayout(sizes, *n.Layout)
	for i, cid := range n.Children {
		c := s.nodes[cid]
		c.X, c.Y = positions[i].X, positions[i].Y
	}
	n.Width, n.Height = size.Width, size.Height
}
