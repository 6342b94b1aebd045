package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// Mode selects how a file's text is scanned for markup.
type Mode int

const (
	// ModeNone marks files that carry no markup (plain TypeScript, JSON, CSS).
	ModeNone Mode = iota
	// ModeScript scans code and finds markup in expression position (JSX/TSX).
	ModeScript
	// ModeMarkup scans the whole file as markup (HTML, Vue, Svelte templates).
	ModeMarkup
)

var modeByExt = map[string]Mode{
	".tsx":    ModeScript,
	".jsx":    ModeScript,
	".js":     ModeScript,
	".mjs":    ModeScript,
	".html":   ModeMarkup,
	".htm":    ModeMarkup,
	".vue":    ModeMarkup,
	".svelte": ModeMarkup,
}

// ModeFor returns the scan mode for a file path based on its extension.
func ModeFor(p string) Mode {
	return modeByExt[strings.ToLower(path.Ext(p))]
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// IsVoid reports whether the element is an HTML void element that can
// never hold children.
func IsVoid(e *Element) bool {
	return voidElements[strings.ToLower(e.Name)]
}

// Scan parses text into a markup element tree.
// It is total: malformed input yields a PARSE_FAILURE error, never a panic.
func Scan(text string, mode Mode) (*Document, error) {
	return scan("", text, mode)
}

// ScanFile scans text with the mode for file. Parse errors are positioned
// as file:line:col.
func ScanFile(file, text string) (*Document, error) {
	return scan(file, text, ModeFor(file))
}

func scan(file, text string, mode Mode) (*Document, error) {
	s := &scanner{file: file, src: text, mode: mode, lines: NewLineIndex(text)}
	doc := &Document{Text: text, Mode: mode, Lines: s.lines}

	var err error
	switch mode {
	case ModeScript:
		doc.Roots, err = s.scanCode(0, nil)
	case ModeMarkup:
		doc.Roots, err = s.scanMarkupTop()
	default:
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// arrowMark stands in for "=>" as the previous significant token.
const arrowMark = 0x01

type scanner struct {
	file  string
	src   string
	pos   int
	mode  Mode
	lines *LineIndex
}

func (s *scanner) errorf(offset int, format string, args ...any) error {
	line, col := s.lines.Position(offset)
	pos := fmt.Sprintf("%d:%d", line, col)
	if s.file != "" {
		pos = s.file + ":" + pos
	}
	return errors.New(errors.ErrCodeParseFailure, "%s: "+format, append([]any{pos}, args...)...)
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.pos:], p)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

func isTagChar(c byte) bool { return isIdentChar(c) || c == '.' || c == ':' || c == '-' }

// scanCode walks code until EOF (stop == 0) or the '}' closing the current
// expression container (stop == '}'). Markup found in expression position
// is returned; it is attached to parent when parent is non-nil.
func (s *scanner) scanCode(stop byte, parent *Element) ([]*Element, error) {
	var (
		found    []*Element
		depth    int
		prev     byte
		prevWord string
	)
	start := s.pos

	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '/' && s.peek(1) == '/':
			s.skipLineComment()
		case c == '/' && s.peek(1) == '*':
			if err := s.skipBlockComment(); err != nil {
				return nil, err
			}
		case c == '"' || c == '\'':
			if err := s.skipString(c); err != nil {
				return nil, err
			}
			prev, prevWord = '"', ""
		case c == '`':
			els, err := s.scanTemplate(parent)
			if err != nil {
				return nil, err
			}
			found = append(found, els...)
			prev, prevWord = '"', ""
		case c == '/' && regexAllowed(prev, prevWord):
			if err := s.skipRegex(); err != nil {
				return nil, err
			}
			prev, prevWord = ')', ""
		case c == '{':
			depth++
			s.pos++
			prev, prevWord = '{', ""
		case c == '}':
			if depth == 0 && stop == '}' {
				s.pos++
				return found, nil
			}
			if depth > 0 {
				depth--
			}
			s.pos++
			prev, prevWord = '}', ""
		case c == '<' && markupAllowed(prev, prevWord) && s.looksLikeTag():
			at, embedded := s.pos, 0
			if parent != nil {
				embedded = len(parent.Embedded)
			}
			el, err := s.scanElement(parent, parent != nil)
			if err != nil {
				if !s.genericSignatureAt(at) {
					return nil, err
				}
				// "<T>(v: T) => T" in type position: not markup after all.
				if parent != nil {
					parent.Embedded = parent.Embedded[:embedded]
				}
				s.pos = at + 1
				prev, prevWord = '<', ""
				continue
			}
			found = append(found, el)
			prev, prevWord = ')', ""
		case isIdentChar(c):
			ws := s.pos
			for !s.eof() && isIdentChar(s.src[s.pos]) {
				s.pos++
			}
			prev, prevWord = 'a', s.src[ws:s.pos]
		default:
			if c == '>' && s.pos > 0 && s.src[s.pos-1] == '=' {
				prev = arrowMark
			} else {
				prev = c
			}
			prevWord = ""
			s.pos++
		}
	}

	if stop == '}' {
		return nil, s.errorf(start, "unterminated expression container")
	}
	return found, nil
}

var expressionKeywords = map[string]bool{
	"return": true, "yield": true, "await": true, "default": true,
	"case": true, "else": true, "do": true, "typeof": true, "void": true,
}

func markupAllowed(prev byte, prevWord string) bool {
	switch prev {
	case 0, '(', ',', '=', ':', '?', '[', '{', '&', '|', '!', ';', arrowMark:
		return true
	case 'a':
		return expressionKeywords[prevWord]
	}
	return false
}

func regexAllowed(prev byte, prevWord string) bool {
	switch prev {
	case 0, '(', ',', '=', ':', '?', '[', '{', '}', '&', '|', '!', ';', arrowMark:
		return true
	case 'a':
		return expressionKeywords[prevWord]
	}
	return false
}

// looksLikeTag distinguishes "<div" and "<>" from a generic parameter list
// such as "<T,>(x) => x" or "<T extends U>".
func (s *scanner) looksLikeTag() bool {
	next := s.peek(1)
	if next == '>' {
		return true
	}
	if !isIdentStart(next) {
		return false
	}
	i := s.pos + 1
	for i < len(s.src) && isTagChar(s.src[i]) {
		i++
	}
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	if i < len(s.src) && s.src[i] == ',' {
		return false
	}
	return !strings.HasPrefix(s.src[i:], "extends ")
}

// genericSignatureAt reports whether the '<' at i opens a type parameter
// list of a function signature: "<T>(" with optional spaces.
func (s *scanner) genericSignatureAt(i int) bool {
	i++
	if i >= len(s.src) || !isIdentStart(s.src[i]) {
		return false
	}
	for i < len(s.src) && isIdentChar(s.src[i]) {
		i++
	}
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	if i >= len(s.src) || s.src[i] != '>' {
		return false
	}
	i++
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	return i < len(s.src) && s.src[i] == '('
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipBlockComment() error {
	start := s.pos
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		return s.errorf(start, "unterminated comment")
	}
	s.pos += end + 4
	return nil
}

func (s *scanner) skipString(q byte) error {
	start := s.pos
	s.pos++
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case q:
			s.pos++
			return nil
		case '\n':
			return s.errorf(start, "unterminated string")
		}
		s.pos++
	}
	return s.errorf(start, "unterminated string")
}

func (s *scanner) skipRegex() error {
	start := s.pos
	s.pos++
	inClass := false
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				s.pos++
				for !s.eof() && isIdentChar(s.src[s.pos]) {
					s.pos++
				}
				return nil
			}
		case '\n':
			return s.errorf(start, "unterminated regular expression")
		}
		s.pos++
	}
	return s.errorf(start, "unterminated regular expression")
}

func (s *scanner) scanTemplate(parent *Element) ([]*Element, error) {
	start := s.pos
	s.pos++
	var found []*Element
	for !s.eof() {
		switch {
		case s.src[s.pos] == '\\':
			s.pos += 2
		case s.src[s.pos] == '`':
			s.pos++
			return found, nil
		case s.hasPrefix("${"):
			s.pos += 2
			els, err := s.scanCode('}', parent)
			if err != nil {
				return nil, err
			}
			found = append(found, els...)
		default:
			s.pos++
		}
	}
	return nil, s.errorf(start, "unterminated template literal")
}

func (s *scanner) readTagName() string {
	start := s.pos
	for !s.eof() && isTagChar(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) skipTagSpace() error {
	for !s.eof() {
		switch {
		case isSpace(s.src[s.pos]):
			s.pos++
		case s.mode == ModeScript && s.hasPrefix("//"):
			s.skipLineComment()
		case s.mode == ModeScript && s.hasPrefix("/*"):
			if err := s.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// scanElement parses one element starting at '<'.
func (s *scanner) scanElement(parent *Element, inExpr bool) (*Element, error) {
	el := &Element{Start: s.pos, Parent: parent, InExpression: inExpr}
	s.pos++
	el.Name = s.readTagName()
	el.NameEnd = s.pos
	if parent != nil && inExpr {
		parent.Embedded = append(parent.Embedded, el)
	}

	if err := s.scanAttrs(el); err != nil {
		return nil, err
	}
	if el.SelfClosing {
		return el, nil
	}

	if s.mode == ModeMarkup && IsVoid(el) {
		el.SelfClosing = true
		el.CloseStart = el.OpenEnd
		el.End = el.OpenEnd
		return el, nil
	}

	if s.mode == ModeMarkup {
		lower := strings.ToLower(el.Name)
		if lower == "script" || lower == "style" {
			idx := strings.Index(strings.ToLower(s.src[s.pos:]), "</"+lower)
			if idx < 0 {
				return nil, s.errorf(el.Start, "unclosed <%s>", el.Name)
			}
			s.pos += idx
			return el, s.scanClose(el)
		}
	}

	return el, s.scanChildren(el)
}

func (s *scanner) scanAttrs(el *Element) error {
	for {
		if err := s.skipTagSpace(); err != nil {
			return err
		}
		if s.eof() {
			return s.errorf(el.Start, "unterminated opening tag <%s>", el.Name)
		}
		switch c := s.src[s.pos]; {
		case s.hasPrefix("/>"):
			s.pos += 2
			el.SelfClosing = true
			el.OpenEnd = s.pos
			el.CloseStart = s.pos - 2
			el.End = s.pos
			return nil
		case c == '>':
			s.pos++
			el.OpenEnd = s.pos
			return nil
		case c == '{' && s.mode == ModeScript:
			s.pos++
			if _, err := s.scanCode('}', el); err != nil {
				return err
			}
		default:
			if err := s.scanAttr(el); err != nil {
				return err
			}
		}
	}
}

func (s *scanner) scanAttr(el *Element) error {
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if isSpace(c) || c == '=' || c == '>' || c == '{' || (c == '/' && s.peek(1) == '>') {
			break
		}
		s.pos++
	}
	if s.pos == start {
		return s.errorf(start, "unexpected %q in <%s>", s.src[start], el.Name)
	}
	attr := Attr{Name: s.src[start:s.pos], Start: start}

	save := s.pos
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
	if s.eof() || s.src[s.pos] != '=' {
		s.pos = save
		attr.End = save
		el.Attrs = append(el.Attrs, attr)
		return nil
	}
	s.pos++
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
	if s.eof() {
		return s.errorf(start, "missing value for attribute %s", attr.Name)
	}

	vs := s.pos
	switch c := s.src[s.pos]; {
	case c == '"' || c == '\'':
		end := strings.IndexByte(s.src[s.pos+1:], c)
		if end < 0 {
			return s.errorf(vs, "unterminated attribute value")
		}
		s.pos += end + 2
	case c == '{' && s.mode == ModeScript:
		s.pos++
		if _, err := s.scanCode('}', el); err != nil {
			return err
		}
	case c == '<' && s.mode == ModeScript:
		if _, err := s.scanElement(el, true); err != nil {
			return err
		}
	default:
		for !s.eof() && !isSpace(s.src[s.pos]) && s.src[s.pos] != '>' {
			if s.hasPrefix("/>") {
				break
			}
			s.pos++
		}
	}
	attr.Value = s.src[vs:s.pos]
	attr.End = s.pos
	el.Attrs = append(el.Attrs, attr)
	return nil
}

func (s *scanner) scanChildren(el *Element) error {
	for {
		if s.eof() {
			return s.errorf(el.Start, "unclosed <%s>", el.Name)
		}
		switch {
		case s.hasPrefix("</"):
			return s.scanClose(el)
		case s.mode == ModeMarkup && s.hasPrefix("<!--"):
			if err := s.skipHTMLComment(); err != nil {
				return err
			}
		case s.src[s.pos] == '<' && (s.mode == ModeMarkup || s.looksLikeTag()):
			child, err := s.scanElement(el, false)
			if err != nil {
				return err
			}
			el.Children = append(el.Children, child)
		case s.src[s.pos] == '{' && s.mode == ModeScript:
			s.pos++
			if _, err := s.scanCode('}', el); err != nil {
				return err
			}
		default:
			s.pos++
		}
	}
}

func (s *scanner) scanClose(el *Element) error {
	closeStart := s.pos
	s.pos += 2
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
	name := s.readTagName()
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
	if s.eof() || s.src[s.pos] != '>' {
		return s.errorf(closeStart, "malformed closing tag for <%s>", el.Name)
	}
	matches := name == el.Name
	if s.mode == ModeMarkup {
		matches = strings.EqualFold(name, el.Name)
	}
	if !matches {
		return s.errorf(closeStart, "closing tag </%s> does not match <%s>", name, el.Name)
	}
	s.pos++
	el.CloseStart = closeStart
	el.End = s.pos
	return nil
}

func (s *scanner) skipHTMLComment() error {
	start := s.pos
	end := strings.Index(s.src[s.pos+4:], "-->")
	if end < 0 {
		return s.errorf(start, "unterminated comment")
	}
	s.pos += end + 7
	return nil
}

// scanMarkupTop scans a whole-markup file (HTML, Vue, Svelte).
func (s *scanner) scanMarkupTop() ([]*Element, error) {
	var roots []*Element
	for !s.eof() {
		switch {
		case s.hasPrefix("<!--"):
			if err := s.skipHTMLComment(); err != nil {
				return nil, err
			}
		case s.hasPrefix("<!") || s.hasPrefix("<?"):
			end := strings.IndexByte(s.src[s.pos:], '>')
			if end < 0 {
				return nil, s.errorf(s.pos, "unterminated declaration")
			}
			s.pos += end + 1
		case s.hasPrefix("</"):
			return nil, s.errorf(s.pos, "stray closing tag")
		case s.src[s.pos] == '<' && isIdentStart(s.peek(1)):
			el, err := s.scanElement(nil, false)
			if err != nil {
				return nil, err
			}
			roots = append(roots, el)
		default:
			s.pos++
		}
	}
	return roots, nil
}
