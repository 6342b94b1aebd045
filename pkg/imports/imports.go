// Package imports merges required component imports into a module's
// leading import block.
package imports

import (
	"path"
	"sort"
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// Requirement is one binding a piece of markup needs in scope.
type Requirement struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Default bool   `json:"default,omitempty"`
}

// Result is the outcome of [Merge].
type Result struct {
	Text string

	// Added lists the requirements that were not already bound.
	Added []Requirement

	// LineDelta is the number of lines inserted into the text.
	LineDelta int

	// FromLine is the first line (1-based, in the original text) that
	// moved down by LineDelta. Zero when nothing moved.
	FromLine int
}

// Shift re-anchors a location computed against the original text.
func (r Result) Shift(loc source.Location) source.Location {
	if r.LineDelta != 0 && r.FromLine > 0 && loc.Line >= r.FromLine {
		loc.Line += r.LineDelta
	}
	return loc
}

type edit struct {
	off  int
	text string
}

// Merge adds the requirements missing from text's import block.
//
// A requirement whose name is already bound by any import is skipped,
// whatever path it comes from. A named import joins an existing statement
// for the same path; anything else becomes a new statement after the last
// import (or at the top of the file). Project-rooted paths ("/components/
// Card.tsx") are rewritten relative to filePath. On a parse failure the
// original text is returned with the error.
func Merge(text, filePath string, reqs []Requirement) (Result, error) {
	block, err := Parse(text)
	if err != nil {
		return Result{Text: text}, errors.Wrap(errors.ErrCodeParseFailure, err, "parse imports of %s", filePath)
	}

	bound := make(map[string]bool)
	for _, st := range block.Statements {
		for _, l := range st.Locals() {
			bound[l] = true
		}
	}

	quote, semi := byte('"'), true
	if n := len(block.Statements); n > 0 {
		quote = block.Statements[0].Quote
		semi = block.Statements[n-1].Semicolon
	}

	var (
		edits    []edit
		appended []string
		added    []Requirement
	)
	for _, req := range reqs {
		if req.Name == "" || bound[req.Name] {
			continue
		}
		if err := errors.ValidateComponentName(req.Name); err != nil {
			return Result{Text: text}, err
		}
		spec := Resolve(filePath, req.Path)
		if err := errors.ValidateImportPath(spec); err != nil {
			return Result{Text: text}, err
		}
		bound[req.Name] = true
		added = append(added, req)

		if e, ok := mergeInto(text, block.Statements, req, spec); ok {
			edits = append(edits, e)
			continue
		}
		appended = append(appended, render(req, spec, quote, semi))
	}
	if len(added) == 0 {
		return Result{Text: text}, nil
	}

	if len(appended) > 0 {
		edits = append(edits, appendEdit(text, block, appended))
	}

	// Apply back to front so earlier offsets stay valid.
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].off > edits[j].off })
	out := text
	li := source.NewLineIndex(text)
	from := 0
	for _, e := range edits {
		out = out[:e.off] + e.text + out[e.off:]
		if source.CountLines(e.text) == 0 {
			continue
		}
		line := firstMovedLine(li, text, e.off)
		if from == 0 || line < from {
			from = line
		}
	}

	res := Result{
		Text:      out,
		Added:     added,
		LineDelta: source.CountLines(out) - source.CountLines(text),
	}
	if res.LineDelta != 0 {
		res.FromLine = from
	}
	return res, nil
}

// firstMovedLine returns the first original line pushed down by an
// insertion at off.
func firstMovedLine(li *source.LineIndex, text string, off int) int {
	line, _ := li.Position(off)
	if off == 0 || (off <= len(text) && text[off-1] == '\n') {
		return line
	}
	return line + 1
}

// mergeInto extends an existing statement for the same module.
func mergeInto(text string, stmts []Statement, req Requirement, spec string) (edit, bool) {
	for _, st := range stmts {
		if st.Path != spec || st.TypeOnly || st.Namespace != "" {
			continue
		}
		if req.Default {
			if st.Default != "" {
				continue
			}
			return edit{off: st.ClauseStart, text: req.Name + ", "}, true
		}
		if !st.Braces {
			if st.Default == "" {
				continue
			}
			return edit{off: st.DefaultEnd, text: ", { " + req.Name + " }"}, true
		}
		return namedEdit(text, st, req.Name), true
	}
	return edit{}, false
}

// namedEdit adds name to a braced clause, following its single or
// multi-line layout and any trailing comma.
func namedEdit(text string, st Statement, name string) edit {
	if len(st.Named) == 0 {
		return edit{off: st.CloseBrace, text: " " + name + " "}
	}
	inner := text[st.OpenBrace+1 : st.CloseBrace]
	trimmed := strings.TrimRight(inner, " \t\r\n")
	multiline := strings.Contains(inner, "\n")
	last := st.Named[len(st.Named)-1]
	indent := source.Indentation(text, last.End)

	if strings.HasSuffix(trimmed, ",") {
		comma := st.OpenBrace + len(trimmed) + 1
		if multiline {
			return edit{off: comma, text: "\n" + indent + name + ","}
		}
		return edit{off: comma, text: " " + name + ","}
	}
	if multiline {
		return edit{off: last.End, text: ",\n" + indent + name}
	}
	return edit{off: last.End, text: ", " + name}
}

// appendEdit inserts new statements after the last import or at the top
// of the file.
func appendEdit(text string, block *Block, lines []string) edit {
	body := strings.Join(lines, "\n")
	if n := len(block.Statements); n > 0 {
		end := block.Statements[n-1].End
		if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
			return edit{off: end + nl + 1, text: body + "\n"}
		}
		return edit{off: len(text), text: "\n" + body}
	}
	if block.Prologue > 0 {
		off := block.Prologue
		if nl := strings.IndexByte(text[off:], '\n'); nl >= 0 {
			return edit{off: off + nl + 1, text: body + "\n"}
		}
		return edit{off: len(text), text: "\n" + body}
	}
	if text == "" {
		return edit{off: 0, text: body + "\n"}
	}
	return edit{off: 0, text: body + "\n\n"}
}

func render(req Requirement, spec string, quote byte, semi bool) string {
	var b strings.Builder
	b.WriteString("import ")
	if req.Default {
		b.WriteString(req.Name)
	} else {
		b.WriteString("{ " + req.Name + " }")
	}
	b.WriteString(" from ")
	b.WriteByte(quote)
	b.WriteString(spec)
	b.WriteByte(quote)
	if semi {
		b.WriteByte(';')
	}
	return b.String()
}

var moduleExts = []string{".tsx", ".ts", ".jsx", ".js", ".mjs"}

// Resolve turns a project-rooted import path into a specifier relative to
// the importing file. Bare package names and relative paths are returned
// unchanged.
func Resolve(fromFile, target string) string {
	if !strings.HasPrefix(target, "/") {
		return target
	}
	for _, ext := range moduleExts {
		if strings.HasSuffix(target, ext) {
			target = strings.TrimSuffix(target, ext)
			break
		}
	}
	from := strings.Split(strings.Trim(path.Dir(fromFile), "/"), "/")
	to := strings.Split(strings.Trim(target, "/"), "/")
	if from[0] == "" {
		from = nil
	}

	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var parts []string
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "..") {
		rel = "./" + rel
	}
	return rel
}
