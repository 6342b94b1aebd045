package astwriter

import (
	"strings"
	"testing"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

const listTSX = `export function List() {
  return (
    <ul>
      <li>A</li>
      <li>B</li>
      <li>C</li>
    </ul>
  );
}
`

func loc(line, col int) source.Location {
	return source.Location{File: "/List.tsx", Line: line, Column: col}
}

func TestSwapSiblingPrev(t *testing.T) {
	out, newLoc, err := SwapSiblingAtLocation("/List.tsx", listTSX, loc(6, 7), Prev)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	want := `export function List() {
  return (
    <ul>
      <li>A</li>
      <li>C</li>
      <li>B</li>
    </ul>
  );
}
`
	if out != want {
		t.Errorf("text =\n%s", out)
	}
	if newLoc != loc(5, 7) {
		t.Errorf("new location = %s, want line 5 col 7", newLoc)
	}

	doc, err := source.Scan(out, source.ModeScript)
	if err != nil {
		t.Fatal(err)
	}
	el, ok := doc.Resolve(newLoc)
	if !ok || el == nil || out[el.OpenEnd:el.OpenEnd+1] != "C" {
		t.Error("new location does not point at C")
	}
}

func TestSwapSiblingNextAtEnd(t *testing.T) {
	out, got, err := SwapSiblingAtLocation("/List.tsx", listTSX, loc(6, 7), Next)
	if !errors.Is(err, errors.ErrCodeNoSiblingInDirection) {
		t.Fatalf("err = %v, want NO_SIBLING_IN_DIRECTION", err)
	}
	if !errors.IsInformational(err) {
		t.Error("boundary should be informational")
	}
	if out != listTSX || got != loc(6, 7) {
		t.Error("text or location changed on failure")
	}
}

func TestSwapSiblingNextMultiline(t *testing.T) {
	text := `const x = (
  <div>
    <Header
      title="t"
    />
    <p>short</p>
  </div>
);
`
	out, newLoc, err := SwapSiblingAtLocation("/x.jsx", text, source.Location{File: "/x.jsx", Line: 3, Column: 5}, Next)
	if err != nil {
		t.Fatal(err)
	}
	want := `const x = (
  <div>
    <p>short</p>
    <Header
      title="t"
    />
  </div>
);
`
	if out != want {
		t.Errorf("text =\n%s", out)
	}
	if newLoc.Line != 4 || newLoc.Column != 5 {
		t.Errorf("new location = %s", newLoc)
	}
}

func TestSwapErrors(t *testing.T) {
	text := `const a = (
  <main>
    {items.map((i) => <Item key={i} />)}
    <Footer />
  </main>
);
`
	tests := []struct {
		name string
		file string
		loc  source.Location
		code errors.Code
	}{
		{"root element", "/a.tsx", source.Location{File: "/a.tsx", Line: 2, Column: 3}, errors.ErrCodeNonReorderableContext},
		{"inside expression", "/a.tsx", source.Location{File: "/a.tsx", Line: 3, Column: 23}, errors.ErrCodeNonReorderableContext},
		{"no element there", "/a.tsx", source.Location{File: "/a.tsx", Line: 4, Column: 6}, errors.ErrCodeSourceNotFound},
		{"out of range", "/a.tsx", source.Location{File: "/a.tsx", Line: 40, Column: 1}, errors.ErrCodeSourceNotFound},
		{"other file", "/a.tsx", source.Location{File: "/b.tsx", Line: 4, Column: 5}, errors.ErrCodeStaleSourceLocation},
		{"only markup sibling", "/a.tsx", source.Location{File: "/a.tsx", Line: 4, Column: 5}, errors.ErrCodeNoSiblingInDirection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre := PreflightSwapSibling(tt.file, text, tt.loc, Prev)
			_, _, err := SwapSiblingAtLocation(tt.file, text, tt.loc, Prev)
			if !errors.Is(err, tt.code) || !errors.Is(pre, tt.code) {
				t.Errorf("errs = %v / %v, want %s", pre, err, tt.code)
			}
		})
	}
}

func TestPreflightPredictsSwap(t *testing.T) {
	for line := 1; line <= 9; line++ {
		for col := 1; col <= 12; col++ {
			for _, dir := range []Direction{Prev, Next} {
				l := loc(line, col)
				pre := PreflightSwapSibling("/List.tsx", listTSX, l, dir)
				_, _, err := SwapSiblingAtLocation("/List.tsx", listTSX, l, dir)
				if (pre == nil) != (err == nil) {
					t.Fatalf("%s %s: preflight %v, swap %v", l, dir, pre, err)
				}
			}
		}
	}
}

func TestInsertChild(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		loc    source.Location
		markup string
		pos    Position
		want   string
		child  source.Location
	}{
		{
			name:   "last child follows sibling indent",
			text:   "<div>\n    <Button />\n</div>",
			loc:    source.Location{File: "/App.tsx", Line: 1, Column: 1},
			markup: "<Card />",
			want:   "<div>\n    <Button />\n    <Card />\n</div>",
			child:  source.Location{File: "/App.tsx", Line: 3, Column: 5},
		},
		{
			name:   "first child",
			text:   "  <div>\n    <Button />\n  </div>",
			loc:    source.Location{File: "/App.tsx", Line: 1, Column: 3},
			markup: "<Card />",
			pos:    First,
			want:   "  <div>\n    <Card />\n    <Button />\n  </div>",
			child:  source.Location{File: "/App.tsx", Line: 2, Column: 5},
		},
		{
			name:   "self-closing anchor expands",
			text:   "  <div className=\"x\" />",
			loc:    source.Location{File: "/App.tsx", Line: 1, Column: 3},
			markup: "<Card>\n  <p>hi</p>\n</Card>",
			want:   "  <div className=\"x\">\n    <Card>\n      <p>hi</p>\n    </Card>\n  </div>",
			child:  source.Location{File: "/App.tsx", Line: 2, Column: 5},
		},
		{
			name:   "empty element",
			text:   "<section></section>",
			loc:    source.Location{File: "/App.tsx", Line: 1, Column: 1},
			markup: "<Card />",
			want:   "<section>\n  <Card />\n</section>",
			child:  source.Location{File: "/App.tsx", Line: 2, Column: 3},
		},
		{
			name:   "inline children",
			text:   "<p><b>x</b></p>",
			loc:    source.Location{File: "/App.tsx", Line: 1, Column: 1},
			markup: "<i />",
			want:   "<p><b>x</b>\n  <i />\n</p>",
			child:  source.Location{File: "/App.tsx", Line: 2, Column: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := InsertChildAtLocation("/App.tsx", tt.text, tt.loc, tt.markup, tt.pos)
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if res.Text != tt.want {
				t.Errorf("text =\n%s\nwant\n%s", res.Text, tt.want)
			}
			if res.Child != tt.child {
				t.Errorf("child = %s, want %s", res.Child, tt.child)
			}
		})
	}
}

func TestInsertChildErrors(t *testing.T) {
	text := "<div>\n  <input />\n</div>"
	tests := []struct {
		name string
		loc  source.Location
		code errors.Code
	}{
		{"no element", source.Location{File: "/App.tsx", Line: 1, Column: 2}, errors.ErrCodeSourceNotFound},
		{"void element", source.Location{File: "/App.tsx", Line: 2, Column: 3}, errors.ErrCodeInvalidInput},
		{"stale file", source.Location{File: "/Other.tsx", Line: 1, Column: 1}, errors.ErrCodeStaleSourceLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := InsertChildAtLocation("/App.tsx", text, tt.loc, "<Card />", Last)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
			if res.Text != text {
				t.Error("text changed on failure")
			}
		})
	}

	if _, err := InsertChildAtLocation("/App.tsx", "<div>", source.Location{File: "/App.tsx", Line: 1, Column: 1}, "<a />", Last); !errors.Is(err, errors.ErrCodeParseFailure) {
		t.Errorf("parse failure err = %v", err)
	}
}

func TestInsertChildBesideGenericSignature(t *testing.T) {
	text := "type Mapper = <T>(v: T) => T;\n\nexport default function App() {\n  return (\n    <div>\n      <Button />\n    </div>\n  );\n}\n"
	loc := source.Location{File: "/App.tsx", Line: 5, Column: 5}

	res, err := InsertChildAtLocation("/App.tsx", text, loc, "<Card />", Last)
	if err != nil {
		t.Fatalf("InsertChildAtLocation: %v", err)
	}
	want := "      <Button />\n      <Card />\n    </div>"
	if !strings.Contains(res.Text, want) {
		t.Errorf("text = %q, want it to contain %q", res.Text, want)
	}
}
