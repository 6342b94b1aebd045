package imports

import (
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// Specifier is one name inside an import's braces.
type Specifier struct {
	Imported string
	Local    string
	End      int // offset just past the specifier text
}

// Statement is one parsed import declaration.
type Statement struct {
	Start, End int // End is just past the trailing semicolon when present

	Path      string
	Quote     byte
	Semicolon bool
	TypeOnly  bool

	Default   string
	Namespace string
	Named     []Specifier

	// Braces is false when the statement has no named clause.
	Braces     bool
	OpenBrace  int
	CloseBrace int
	// DefaultEnd is the offset just past the default binding.
	DefaultEnd int
	// ClauseStart is the offset of the first token after "import".
	ClauseStart int
}

// Locals returns every name the statement binds.
func (s Statement) Locals() []string {
	var out []string
	if s.Default != "" {
		out = append(out, s.Default)
	}
	if s.Namespace != "" {
		out = append(out, s.Namespace)
	}
	for _, n := range s.Named {
		out = append(out, n.Local)
	}
	return out
}

// Block is the leading run of import declarations in a file.
type Block struct {
	Statements []Statement
	// Prologue is the offset just past leading directives and comments
	// ("use client"), where a first import is inserted.
	Prologue int
}

// Parse reads the leading import block of text. Parsing stops at the first
// statement that is not an import declaration.
func Parse(text string) (*Block, error) {
	p := &parser{text: text}
	b := &Block{}
	for {
		if err := p.skipTrivia(); err != nil {
			return nil, err
		}
		if p.eof() {
			break
		}
		if len(b.Statements) == 0 && (p.peek() == '"' || p.peek() == '\'') {
			if _, _, err := p.str(); err != nil {
				return nil, err
			}
			p.optional(';')
			b.Prologue = p.pos
			continue
		}
		if !p.keyword("import") {
			break
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		if st == nil {
			break
		}
		b.Statements = append(b.Statements, *st)
	}
	return b, nil
}

type parser struct {
	text string
	pos  int
}

func (p *parser) eof() bool { return p.pos >= len(p.text) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.text[p.pos]
}

func (p *parser) fail(format string, args ...any) error {
	return errors.New(errors.ErrCodeParseFailure, format, args...)
}

func (p *parser) skipTrivia() error {
	for !p.eof() {
		c := p.text[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case strings.HasPrefix(p.text[p.pos:], "//"):
			nl := strings.IndexByte(p.text[p.pos:], '\n')
			if nl < 0 {
				p.pos = len(p.text)
			} else {
				p.pos += nl + 1
			}
		case strings.HasPrefix(p.text[p.pos:], "/*"):
			end := strings.Index(p.text[p.pos+2:], "*/")
			if end < 0 {
				return p.fail("unterminated comment at offset %d", p.pos)
			}
			p.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// keyword reports whether word starts at the cursor as a whole token.
func (p *parser) keyword(word string) bool {
	if !strings.HasPrefix(p.text[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	return end >= len(p.text) || !isIdentByte(p.text[end])
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.text[p.pos]) {
		p.pos++
	}
	return p.text[start:p.pos]
}

func (p *parser) optional(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) str() (string, byte, error) {
	q := p.peek()
	start := p.pos
	p.pos++
	for !p.eof() {
		c := p.text[p.pos]
		switch c {
		case '\\':
			p.pos += 2
			continue
		case '\n':
			return "", 0, p.fail("unterminated string at offset %d", start)
		case q:
			p.pos++
			return p.text[start+1 : p.pos-1], q, nil
		}
		p.pos++
	}
	return "", 0, p.fail("unterminated string at offset %d", start)
}

// statement parses one import declaration at the cursor. It returns nil
// without error for dynamic imports and import.meta, which end the block.
func (p *parser) statement() (*Statement, error) {
	st := &Statement{Start: p.pos}
	p.pos += len("import")
	if err := p.skipTrivia(); err != nil {
		return nil, err
	}
	if c := p.peek(); c == '(' || c == '.' {
		p.pos = st.Start
		return nil, nil
	}
	st.ClauseStart = p.pos

	if p.keyword("type") {
		save := p.pos
		p.pos += len("type")
		if err := p.skipTrivia(); err != nil {
			return nil, err
		}
		if c := p.peek(); c == '{' || c == '*' || (isIdentByte(c) && !p.keyword("from")) {
			st.TypeOnly = true
		} else {
			p.pos = save
		}
	}

	if c := p.peek(); c == '"' || c == '\'' {
		return p.finish(st)
	}

	for {
		if err := p.skipTrivia(); err != nil {
			return nil, err
		}
		switch c := p.peek(); {
		case c == '{':
			if err := p.named(st); err != nil {
				return nil, err
			}
		case c == '*':
			p.pos++
			if err := p.skipTrivia(); err != nil {
				return nil, err
			}
			if !p.keyword("as") {
				return nil, p.fail("expected 'as' after '*' at offset %d", p.pos)
			}
			p.pos += 2
			if err := p.skipTrivia(); err != nil {
				return nil, err
			}
			st.Namespace = p.ident()
		case p.keyword("from"):
			p.pos += len("from")
			if err := p.skipTrivia(); err != nil {
				return nil, err
			}
			return p.finish(st)
		case isIdentByte(c):
			st.Default = p.ident()
			st.DefaultEnd = p.pos
		default:
			return nil, p.fail("unexpected %q in import at offset %d", string(c), p.pos)
		}
		if err := p.skipTrivia(); err != nil {
			return nil, err
		}
		p.optional(',')
	}
}

func (p *parser) named(st *Statement) error {
	st.Braces = true
	st.OpenBrace = p.pos
	p.pos++
	for {
		if err := p.skipTrivia(); err != nil {
			return err
		}
		if p.eof() {
			return p.fail("unterminated import clause at offset %d", st.OpenBrace)
		}
		if p.optional('}') {
			st.CloseBrace = p.pos - 1
			return nil
		}
		if p.optional(',') {
			continue
		}
		if p.keyword("type") {
			save := p.pos
			p.pos += len("type")
			_ = p.skipTrivia()
			if !isIdentByte(p.peek()) || p.keyword("as") {
				p.pos = save
			}
		}
		var imported string
		if c := p.peek(); c == '"' || c == '\'' {
			s, _, err := p.str()
			if err != nil {
				return err
			}
			imported = s
		} else {
			imported = p.ident()
		}
		if imported == "" {
			return p.fail("unexpected %q in import clause at offset %d", string(p.peek()), p.pos)
		}
		spec := Specifier{Imported: imported, Local: imported, End: p.pos}
		if err := p.skipTrivia(); err != nil {
			return err
		}
		if p.keyword("as") {
			p.pos += 2
			if err := p.skipTrivia(); err != nil {
				return err
			}
			spec.Local = p.ident()
			spec.End = p.pos
		}
		st.Named = append(st.Named, spec)
	}
}

func (p *parser) finish(st *Statement) (*Statement, error) {
	if c := p.peek(); c != '"' && c != '\'' {
		return nil, p.fail("expected module path at offset %d", p.pos)
	}
	path, q, err := p.str()
	if err != nil {
		return nil, err
	}
	st.Path, st.Quote = path, q

	// Import attributes: `with { type: "json" }`.
	save := p.pos
	_ = p.skipTrivia()
	if p.keyword("with") || p.keyword("assert") {
		end := strings.IndexByte(p.text[p.pos:], '}')
		if end < 0 {
			return nil, p.fail("unterminated import attributes at offset %d", p.pos)
		}
		p.pos += end + 1
		save = p.pos
	}
	p.pos = save

	// A semicolon may follow on the same line only.
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
	if p.optional(';') {
		st.Semicolon = true
	} else {
		p.pos = save
	}
	st.End = p.pos
	return st, nil
}
