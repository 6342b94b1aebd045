package source

import "strings"

// Attr is one attribute inside an opening tag.
type Attr struct {
	Name  string
	Value string // raw value text including quotes or braces; empty for bare attributes
	Start int    // offset of the attribute name
	End   int    // offset just past the value
}

// Element is one markup element with byte spans into the scanned text.
//
// Children holds the direct markup children in source order. Elements
// that are reachable only through an expression container ({cond && <A/>},
// {items.map(...)}) or an attribute value are listed in Embedded instead:
// their order is decided by code, not by markup position.
type Element struct {
	Name        string
	Start       int // offset of '<'
	NameEnd     int // offset just past the tag name
	OpenEnd     int // offset just past the '>' of the opening tag
	CloseStart  int // offset of "</"; equals OpenEnd-len("/>") for self-closing tags
	End         int // offset just past the element
	SelfClosing bool
	Attrs       []Attr

	Parent       *Element
	Children     []*Element
	Embedded     []*Element
	InExpression bool // reached through an expression container, not markup nesting
}

// IsFragment reports whether the element is a fragment (<>...</>) which
// cannot carry attributes.
func (e *Element) IsFragment() bool {
	return e.Name == "" || e.Name == "Fragment" || e.Name == "React.Fragment"
}

// IsComponent reports whether the tag names a component rather than an
// intrinsic element.
func (e *Element) IsComponent() bool {
	if e.Name == "" {
		return false
	}
	c := e.Name[0]
	return (c >= 'A' && c <= 'Z') || strings.Contains(e.Name, ".")
}

// Attr returns the attribute with the given name.
func (e *Element) Attr(name string) (Attr, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// HasAttr reports whether the opening tag carries the attribute.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Index returns the position of e among its parent's markup children,
// or -1 for roots and embedded elements.
func (e *Element) Index() int {
	if e.Parent == nil || e.InExpression {
		return -1
	}
	for i, c := range e.Parent.Children {
		if c == e {
			return i
		}
	}
	return -1
}

// Document is the result of scanning one file.
type Document struct {
	Text  string
	Mode  Mode
	Roots []*Element
	Lines *LineIndex
}

// Walk visits every element depth-first in source order. Returning false
// from fn skips the element's descendants.
func (d *Document) Walk(fn func(*Element) bool) {
	var visit func(els []*Element)
	visit = func(els []*Element) {
		for _, e := range els {
			if fn(e) {
				visit(sortedDescendants(e))
			}
		}
	}
	visit(d.Roots)
}

func sortedDescendants(e *Element) []*Element {
	if len(e.Embedded) == 0 {
		return e.Children
	}
	out := make([]*Element, 0, len(e.Children)+len(e.Embedded))
	i, j := 0, 0
	for i < len(e.Children) || j < len(e.Embedded) {
		if j >= len(e.Embedded) || (i < len(e.Children) && e.Children[i].Start < e.Embedded[j].Start) {
			out = append(out, e.Children[i])
			i++
		} else {
			out = append(out, e.Embedded[j])
			j++
		}
	}
	return out
}

// ElementAt returns the element whose opening tag starts exactly at offset.
func (d *Document) ElementAt(offset int) *Element {
	var found *Element
	d.Walk(func(e *Element) bool {
		if found != nil {
			return false
		}
		if e.Start == offset {
			found = e
			return false
		}
		return e.Start < offset && offset < e.End
	})
	return found
}

// Resolve returns the element whose opening tag starts at loc.
// The boolean is false when loc lies outside the text.
func (d *Document) Resolve(loc Location) (*Element, bool) {
	off, ok := d.Lines.Offset(loc.Line, loc.Column)
	if !ok {
		return nil, false
	}
	return d.ElementAt(off), true
}

// Location returns the location of e's opening tag within file.
func (d *Document) Location(file string, e *Element) Location {
	line, col := d.Lines.Position(e.Start)
	return Location{File: file, Line: line, Column: col}
}

// Outermost returns the root element spanning the most text, which is the
// element a component returns in typical single-component files.
func (d *Document) Outermost() *Element {
	var best *Element
	for _, r := range d.Roots {
		if best == nil || r.End-r.Start > best.End-best.Start {
			best = r
		}
	}
	return best
}

// Count returns the total number of elements in the document.
func (d *Document) Count() int {
	n := 0
	d.Walk(func(*Element) bool { n++; return true })
	return n
}
