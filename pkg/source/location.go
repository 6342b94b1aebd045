package source

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// Location points at the '<' that opens a markup element.
// Line and Column are 1-based; Column counts bytes.
//
// A Location is only valid for the exact text it was computed from. Any
// edit above it can shift it, so consumers refresh it after every
// successful mutation.
type Location struct {
	File   string
	Line   int
	Column int
}

// String formats the location as "file:line:column".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// MarshalText encodes the location in the same "file:line:column" form
// the instrumentation attribute uses.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Location) UnmarshalText(b []byte) error {
	loc, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

// ParseLocation parses "file:line:column". The file part may itself
// contain colons; the last two fields are always line and column.
func ParseLocation(s string) (Location, error) {
	lastColon := strings.LastIndexByte(s, ':')
	if lastColon <= 0 {
		return Location{}, errors.New(errors.ErrCodeInvalidInput, "malformed location %q", s)
	}
	midColon := strings.LastIndexByte(s[:lastColon], ':')
	if midColon < 0 {
		return Location{}, errors.New(errors.ErrCodeInvalidInput, "malformed location %q", s)
	}

	line, err := strconv.Atoi(s[midColon+1 : lastColon])
	if err != nil || line < 1 {
		return Location{}, errors.New(errors.ErrCodeInvalidInput, "invalid line in location %q", s)
	}
	col, err := strconv.Atoi(s[lastColon+1:])
	if err != nil || col < 1 {
		return Location{}, errors.New(errors.ErrCodeInvalidInput, "invalid column in location %q", s)
	}
	return Location{File: s[:midColon], Line: line, Column: col}, nil
}

// LineIndex converts between byte offsets and 1-based line/column pairs.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(text)}
}

// Lines returns the number of lines in the indexed text.
func (li *LineIndex) Lines() int { return len(li.starts) }

// Offset returns the byte offset of line:col, or false when the pair lies
// outside the text.
func (li *LineIndex) Offset(line, col int) (int, bool) {
	if line < 1 || line > len(li.starts) || col < 1 {
		return 0, false
	}
	start := li.starts[line-1]
	end := li.size
	if line < len(li.starts) {
		end = li.starts[line] - 1
	}
	off := start + col - 1
	if off > end {
		return 0, false
	}
	return off, true
}

// Position returns the 1-based line and column of a byte offset.
func (li *LineIndex) Position(offset int) (line, col int) {
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - li.starts[i] + 1
}

// LineStart returns the offset of the first byte on the line holding offset.
func (li *LineIndex) LineStart(offset int) int {
	line, _ := li.Position(offset)
	return li.starts[line-1]
}

// Indentation returns the leading whitespace of the line containing offset.
func Indentation(text string, offset int) string {
	start := offset
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return text[start:end]
}

// FirstOnLine reports whether only whitespace precedes offset on its line.
func FirstOnLine(text string, offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

// CountLines returns the number of newline characters in text.
func CountLines(text string) int {
	return strings.Count(text, "\n")
}
