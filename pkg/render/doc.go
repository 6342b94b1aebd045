// Package render converts rendered SVG into other output formats.
//
// [ToPDF] and [ToPNG] shell out to rsvg-convert (librsvg); the scene
// diagram renderer in [scenedot] uses them for non-SVG exports.
//
// [scenedot]: github.com/matzehuels/ghostcanvas/pkg/render/scenedot
package render
