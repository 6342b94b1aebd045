package astwriter

import (
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// Direction selects the sibling a swap exchanges with.
type Direction int

const (
	Prev Direction = iota
	Next
)

func (d Direction) String() string {
	if d == Next {
		return "next"
	}
	return "prev"
}

// ParseDirection parses "prev" or "next" (also "up"/"down" and
// "left"/"right").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "prev", "previous", "up", "left":
		return Prev, nil
	case "next", "down", "right":
		return Next, nil
	}
	return Prev, errors.New(errors.ErrCodeInvalidInput, "unknown direction %q (want prev or next)", s)
}

// swapPlan is a validated swap of two adjacent sibling spans.
type swapPlan struct {
	anchor, sibling *source.Element
}

func planSwap(file, text string, loc source.Location, dir Direction) (swapPlan, error) {
	_, el, err := resolve(file, text, loc)
	if err != nil {
		return swapPlan{}, err
	}
	if el.Parent == nil {
		return swapPlan{}, errors.New(errors.ErrCodeNonReorderableContext,
			"<%s> at %s is a root element", el.Name, loc)
	}
	if el.InExpression {
		return swapPlan{}, errors.New(errors.ErrCodeNonReorderableContext,
			"<%s> at %s is produced by an expression", el.Name, loc)
	}

	i := el.Index()
	j := i - 1
	if dir == Next {
		j = i + 1
	}
	if j < 0 || j >= len(el.Parent.Children) {
		return swapPlan{}, errors.New(errors.ErrCodeNoSiblingInDirection,
			"<%s> has no %s sibling", el.Name, dir)
	}
	return swapPlan{anchor: el, sibling: el.Parent.Children[j]}, nil
}

// PreflightSwapSibling runs every check of [SwapSiblingAtLocation] without
// editing. A nil result guarantees the real call succeeds on the same
// text.
func PreflightSwapSibling(file, text string, loc source.Location, dir Direction) error {
	_, err := planSwap(file, text, loc, dir)
	return err
}

// SwapSiblingAtLocation exchanges the element at loc with its previous or
// next markup sibling and returns the new text plus the element's new
// location. Only the two element spans move; whatever lies between them
// stays in place.
func SwapSiblingAtLocation(file, text string, loc source.Location, dir Direction) (string, source.Location, error) {
	plan, err := planSwap(file, text, loc, dir)
	if err != nil {
		return text, loc, err
	}

	a, b := plan.anchor, plan.sibling
	if dir == Prev {
		a, b = b, a
	}
	first := text[a.Start:a.End]
	between := text[a.End:b.Start]
	second := text[b.Start:b.End]
	out := text[:a.Start] + second + between + first + text[b.End:]

	newStart := a.Start
	if dir == Next {
		newStart = a.Start + len(second) + len(between)
	}
	line, col := source.NewLineIndex(out).Position(newStart)
	return out, source.Location{File: file, Line: line, Column: col}, nil
}
