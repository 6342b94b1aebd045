package scene

import "maps"

// Kind is the variant tag of a canvas node.
type Kind string

const (
	KindFrame     Kind = "frame"
	KindGroup     Kind = "group"
	KindComponent Kind = "component"
)

// Direction is the primary axis of an auto-layout container.
type Direction string

const (
	DirectionRow    Direction = "row"
	DirectionColumn Direction = "column"
)

// Layout configures auto-layout for a container.
type Layout struct {
	Direction Direction `json:"direction"`
	Gap       float64   `json:"gap"`
}

// Node is one draft visual element.
type Node struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	ParentID string   `json:"parentId,omitempty"`
	Children []string `json:"children,omitempty"`

	Layout *Layout           `json:"layout,omitempty"`
	Style  map[string]string `json:"style,omitempty"`
	Props  map[string]string `json:"props,omitempty"`
	Text   string            `json:"text,omitempty"`

	// Component is the tag synthesized for component nodes ("Card", "button").
	Component string `json:"component,omitempty"`
	// ImportPath is where Component is imported from; empty for intrinsics.
	ImportPath string `json:"importPath,omitempty"`
	// DefaultImport selects `import Card from` over `import { Card } from`.
	DefaultImport bool `json:"defaultImport,omitempty"`
}

// IsContainer reports whether the node can hold children.
func (n *Node) IsContainer() bool {
	return n.Kind == KindFrame || n.Kind == KindGroup
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	if n.Layout != nil {
		l := *n.Layout
		c.Layout = &l
	}
	c.Style = maps.Clone(n.Style)
	c.Props = maps.Clone(n.Props)
	return &c
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a 2D extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Patch is a partial update for [Store.UpdateNode]. Nil fields are left
// unchanged; a non-nil ParentID of "" moves the node to the root list.
type Patch struct {
	X, Y, Width, Height *float64
	ParentID            *string
	Component           *string
	ImportPath          *string
	Text                *string
	Props               map[string]string // merged key by key; "" deletes a key
}

// Float is a helper for building patches.
func Float(v float64) *float64 { return &v }

// String is a helper for building patches.
func String(v string) *string { return &v }
