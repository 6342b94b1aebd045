package scenedot

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/ghostcanvas/pkg/render"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds geometry, layout and props to node labels.
	Detailed bool
}

// ToDOT converts a snapshot to Graphviz DOT source.
func ToDOT(snap *scene.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	selected := make(map[string]bool, len(snap.Selection.IDs))
	for _, id := range snap.Selection.IDs {
		selected[id] = true
	}

	var edges []string
	snap.Walk(func(n *scene.Node, _ int) {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed), selected[n.ID], n.ID == snap.Selection.Primary)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		for _, c := range n.Children {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", n.ID, c))
		}
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *scene.Node, detailed bool) string {
	title := n.Component
	if title == "" {
		title = string(n.Kind)
	}
	if !detailed {
		return title
	}

	parts := []string{
		n.ID,
		fmt.Sprintf("%g,%g %gx%g", n.X, n.Y, n.Width, n.Height),
	}
	if n.Layout != nil {
		parts = append(parts, fmt.Sprintf("layout: %s gap %g", n.Layout.Direction, n.Layout.Gap))
	}
	for _, k := range slices.Sorted(maps.Keys(n.Props)) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, n.Props[k]))
	}
	return title + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *scene.Node, label string, selected, primary bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.IsContainer() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	switch {
	case primary:
		attrs = append(attrs, "fillcolor=\"#93c5fd\"")
	case selected:
		attrs = append(attrs, "fillcolor=\"#dbeafe\"")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// whose width and height match the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders DOT source as PDF via SVG.
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders DOT source as PNG via SVG.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
