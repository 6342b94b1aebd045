// Package astwriter performs targeted, location-addressed edits on markup
// source text: inserting a child into an element and swapping adjacent
// siblings.
//
// Every edit splices byte spans of the original text. Nothing is
// re-serialized, so formatting, comments and untouched code survive
// verbatim. All functions are pure and all-or-nothing: on any error the
// caller's text is unchanged.
package astwriter

import (
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// Position selects which end of an element's children receives an insert.
type Position int

const (
	Last Position = iota
	First
)

func (p Position) String() string {
	if p == First {
		return "first"
	}
	return "last"
}

// ParsePosition parses "first" or "last".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(s) {
	case "", "last":
		return Last, nil
	case "first":
		return First, nil
	}
	return Last, errors.New(errors.ErrCodeInvalidInput, "unknown position %q (want first or last)", s)
}

// IndentUnit is added per nesting level when no sibling shows the style.
const IndentUnit = "  "

// resolve scans text and returns the element whose opening tag begins at
// loc.
func resolve(file, text string, loc source.Location) (*source.Document, *source.Element, error) {
	if loc.File != file {
		return nil, nil, errors.New(errors.ErrCodeStaleSourceLocation,
			"location %s does not belong to %s", loc, file)
	}
	mode := source.ModeFor(file)
	if mode == source.ModeNone {
		return nil, nil, errors.New(errors.ErrCodeUnsupported, "%s does not contain markup", file)
	}
	doc, err := source.ScanFile(file, text)
	if err != nil {
		return nil, nil, err
	}
	el, ok := doc.Resolve(loc)
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeSourceNotFound, "location %s lies outside the file", loc)
	}
	if el == nil {
		return nil, nil, errors.New(errors.ErrCodeSourceNotFound, "no element starts at %s", loc)
	}
	return doc, el, nil
}

// InsertResult is the outcome of [InsertChildAtLocation].
type InsertResult struct {
	Text string
	// Child is where the inserted markup's first element now starts.
	Child source.Location
}

// InsertChildAtLocation inserts markup as the first or last child of the
// element whose opening tag starts at loc. Self-closing anchors are
// expanded into an open/close pair. Inserted lines follow the indentation
// of existing children, or the anchor's indentation plus one level.
func InsertChildAtLocation(file, text string, loc source.Location, markup string, pos Position) (InsertResult, error) {
	markup = strings.TrimSpace(markup)
	if markup == "" {
		return InsertResult{Text: text}, errors.New(errors.ErrCodeInvalidInput, "nothing to insert")
	}
	_, el, err := resolve(file, text, loc)
	if err != nil {
		return InsertResult{Text: text}, err
	}
	if source.IsVoid(el) && (el.CloseStart == el.OpenEnd || el.Name == strings.ToLower(el.Name)) {
		return InsertResult{Text: text}, errors.New(errors.ErrCodeInvalidInput, "<%s> cannot hold children", el.Name)
	}

	outer := source.Indentation(text, el.Start)
	inner := childIndent(text, el, outer)
	body := reindent(markup, inner)

	var (
		start, end int
		repl       string
		childOff   int // offset of the child within repl
	)
	switch {
	case el.SelfClosing:
		start = el.CloseStart
		for start > el.NameEnd && isBlank(text[start-1]) {
			start--
		}
		end = el.End
		repl = ">\n" + inner
		childOff = len(repl)
		repl += body + "\n" + outer + "</" + el.Name + ">"

	case pos == Last:
		end = el.CloseStart
		if source.FirstOnLine(text, el.CloseStart) && hasNewline(text[el.OpenEnd:el.CloseStart]) {
			start = lineStart(text, el.CloseStart)
			end = start
			repl = inner
			childOff = len(repl)
			repl += body + "\n"
		} else {
			start = end
			repl = "\n" + inner
			childOff = len(repl)
			repl += body + "\n" + outer
		}

	default: // First
		start, end = el.OpenEnd, el.OpenEnd
		rest := text[el.OpenEnd:el.CloseStart]
		if strings.TrimLeft(rest, " \t\r") != "" && strings.HasPrefix(strings.TrimLeft(rest, " \t\r"), "\n") {
			repl = "\n" + inner
			childOff = len(repl)
			repl += body
		} else if strings.TrimSpace(rest) == "" {
			end = el.CloseStart
			repl = "\n" + inner
			childOff = len(repl)
			repl += body + "\n" + outer
		} else {
			repl = "\n" + inner
			childOff = len(repl)
			repl += body + "\n" + inner
		}
	}

	out := text[:start] + repl + text[end:]
	line, col := source.NewLineIndex(out).Position(start + childOff)
	return InsertResult{
		Text:  out,
		Child: source.Location{File: file, Line: line, Column: col},
	}, nil
}

// childIndent returns the indentation used by el's existing children, or
// outer plus one level.
func childIndent(text string, el *source.Element, outer string) string {
	for _, c := range el.Children {
		if source.FirstOnLine(text, c.Start) {
			return source.Indentation(text, c.Start)
		}
	}
	if !el.SelfClosing {
		// Text or expression children on their own line.
		for _, line := range strings.Split(text[el.OpenEnd:el.CloseStart], "\n")[1:] {
			if strings.TrimSpace(line) != "" {
				return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			}
		}
	}
	return outer + IndentUnit
}

// reindent prefixes every line after the first with indent.
func reindent(markup, indent string) string {
	lines := strings.Split(markup, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func hasNewline(s string) bool { return strings.IndexByte(s, '\n') >= 0 }

func lineStart(text string, off int) int {
	return strings.LastIndexByte(text[:off], '\n') + 1
}
