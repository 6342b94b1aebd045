// Package scenedot renders a scene graph snapshot as a Graphviz diagram.
//
// Every canvas node becomes a box and every parent→child link an arrow,
// in sibling order. Selected nodes are filled, the primary one darker.
//
//	dot := scenedot.ToDOT(store.Snapshot(), scenedot.Options{Detailed: true})
//	svg, err := scenedot.RenderSVG(dot)
//
// For PDF or PNG output:
//
//	pdf, err := scenedot.RenderPDF(dot)
//	png, err := scenedot.RenderPNG(dot, 2.0)
//
// SVG rendering runs in-process through [github.com/goccy/go-graphviz].
// PDF and PNG conversion requires librsvg (rsvg-convert).
package scenedot
