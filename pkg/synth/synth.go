// Package synth turns scene graph nodes into markup.
//
// Synthesis is pure: the same subtree always yields byte-identical markup
// and the same import list. Attribute and style keys are emitted in sorted
// order and children in their parent's list order.
//
// Only a container's Layout becomes flex styling. Canvas positions are not
// emitted, so a group made without scene.WithLayout renders as a plain
// <div> whose children flow in document order.
package synth

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/imports"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
)

// Indent is the per-level indentation of synthesized markup.
const Indent = "  "

// ContainerTag is the element emitted for frames and groups.
const ContainerTag = "div"

// Code is synthesized markup plus the imports it needs in scope.
type Code struct {
	Markup  string                `json:"markup"`
	Imports []imports.Requirement `json:"imports"`
}

var propNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:-]*$`)

// Synthesize renders the subtree rooted at id.
func Synthesize(snap *scene.Snapshot, id string) (Code, error) {
	if _, ok := snap.Nodes[id]; !ok {
		return Code{}, errors.New(errors.ErrCodeNodeNotFound, "node %q does not exist", id)
	}
	g := &generator{snap: snap, seen: map[imports.Requirement]bool{}}
	if err := g.node(id, 0, map[string]bool{}); err != nil {
		return Code{}, err
	}
	return Code{Markup: strings.TrimSuffix(g.b.String(), "\n"), Imports: g.imports}, nil
}

type generator struct {
	snap    *scene.Snapshot
	b       strings.Builder
	imports []imports.Requirement
	seen    map[imports.Requirement]bool
}

func (g *generator) node(id string, depth int, path map[string]bool) error {
	n, ok := g.snap.Nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeInvariantViolation, "dangling child %q", id)
	}
	if path[id] {
		return errors.New(errors.ErrCodeInvariantViolation, "cycle through %q", id)
	}
	path[id] = true
	defer delete(path, id)

	indent := strings.Repeat(Indent, depth)
	tag, attrs, err := g.open(n)
	if err != nil {
		return err
	}

	g.b.WriteString(indent)
	g.b.WriteString("<" + tag)
	for _, a := range attrs {
		g.b.WriteString(" " + a)
	}

	text := n.Text
	if c, ok := n.Props["children"]; ok && text == "" {
		text = c
	}
	switch {
	case n.IsContainer() && len(n.Children) > 0:
		g.b.WriteString(">\n")
		for _, c := range n.Children {
			if err := g.node(c, depth+1, path); err != nil {
				return err
			}
		}
		g.b.WriteString(indent + "</" + tag + ">\n")
	case text != "":
		g.b.WriteString(">" + textChild(text) + "</" + tag + ">\n")
	default:
		g.b.WriteString(" />\n")
	}
	return nil
}

// open returns the tag and the formatted attributes of n's opening tag.
func (g *generator) open(n *scene.Node) (string, []string, error) {
	tag := n.Component
	if n.IsContainer() || tag == "" {
		if n.Kind == scene.KindComponent {
			return "", nil, errors.New(errors.ErrCodeInvalidInput, "component node %q has no component type", n.ID)
		}
		tag = ContainerTag
	}
	if err := errors.ValidateComponentName(tag); err != nil {
		return "", nil, err
	}
	if n.Kind == scene.KindComponent && n.ImportPath != "" && !isIntrinsic(tag) {
		name, _, _ := strings.Cut(tag, ".")
		g.require(imports.Requirement{Name: name, Path: n.ImportPath, Default: n.DefaultImport})
	}

	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		if k == "children" || k == "style" {
			continue
		}
		if !propNameRegex.MatchString(k) {
			return "", nil, errors.New(errors.ErrCodeInvalidInput, "invalid prop name %q on node %q", k, n.ID)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		attrs = append(attrs, k+"="+attrValue(n.Props[k]))
	}
	if style := styleObject(n); style != "" {
		attrs = append(attrs, "style={{ "+style+" }}")
	}
	return tag, attrs, nil
}

func (g *generator) require(r imports.Requirement) {
	if g.seen[r] {
		return
	}
	g.seen[r] = true
	g.imports = append(g.imports, r)
}

// isIntrinsic reports whether tag names a host element ("div", "button").
func isIntrinsic(tag string) bool {
	c := tag[0]
	return c >= 'a' && c <= 'z' && !strings.Contains(tag, ".")
}

// styleObject renders the layout as flex styling followed by the node's
// style overrides, which win on conflicting keys.
func styleObject(n *scene.Node) string {
	var parts []string
	overridden := map[string]bool{}
	for k := range n.Style {
		overridden[camel(k)] = true
	}

	if n.IsContainer() && n.Layout != nil {
		if !overridden["display"] {
			parts = append(parts, `display: "flex"`)
		}
		if !overridden["flexDirection"] {
			parts = append(parts, "flexDirection: "+strconv.Quote(string(n.Layout.Direction)))
		}
		if !overridden["gap"] && n.Layout.Gap != 0 {
			parts = append(parts, "gap: "+number(n.Layout.Gap))
		}
	}

	keys := make([]string, 0, len(n.Style))
	for k := range n.Style {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return camel(keys[i]) < camel(keys[j]) })
	for _, k := range keys {
		parts = append(parts, camel(k)+": "+styleValue(n.Style[k]))
	}
	return strings.Join(parts, ", ")
}

// camel converts CSS property names to their object-key form
// ("background-color" -> "backgroundColor"). Custom properties stay quoted.
func camel(k string) string {
	if strings.HasPrefix(k, "--") {
		return strconv.Quote(k)
	}
	parts := strings.Split(k, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func styleValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return strconv.Quote(v)
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// attrValue quotes a prop value. Values a plain string attribute cannot
// carry become string expressions.
func attrValue(v string) string {
	if strings.ContainsAny(v, "\"\n\\") {
		return "{" + strconv.Quote(v) + "}"
	}
	return `"` + v + `"`
}

// textChild escapes characters that would otherwise be read as markup or
// an expression container.
func textChild(s string) string {
	if strings.ContainsAny(s, "{}<>\n") {
		return "{" + strconv.Quote(s) + "}"
	}
	return s
}
