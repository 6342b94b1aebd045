// Package pkg provides the core libraries of the ghostcanvas editing host.
//
// # Overview
//
// ghostcanvas lets a designer draw draft elements on a canvas and turns them
// into real JSX/TSX source. A draft is dropped onto a live preview frame;
// the frame reports which element lies under the cursor and where that
// element was written; the host synthesizes markup for the draft and
// inserts it there. The pkg directory is organized into four areas:
//
//  1. Canvas model: [scene], [synth], [viewport]
//  2. Source editing: [source], [astwriter], [imports], [instrument]
//  3. Preview plumbing: [protocol], [filesync], [preview], [vfs]
//  4. Orchestration: [materialize], [session]
//
// # Architecture
//
// The flow of one drop:
//
//	canvas draft (scene.Node)
//	         ↓
//	    [protocol] FIND_DROP_TARGET → frame answers with a source location
//	         ↓
//	    [synth] markup + import requirements
//	         ↓
//	    [imports] merge, [astwriter] insert at the location
//	         ↓
//	    [vfs] write → [filesync] batch → [preview] instrument → frames
//
// # Quick Start
//
// Create a session over a project directory and drop a draft into it:
//
//	fs, _ := vfs.NewDirFS("./my-app")
//	s, _ := session.New(session.Options{FS: fs})
//	id, _ := s.Scene.AddNode(scene.Node{Component: "Card", ImportPath: "/components/Card.tsx"})
//	res, _ := s.Materialize(ctx, materialize.Request{NodeID: id, FrameID: "w1", Point: protocol.Point{X: 40, Y: 80}})
//	fmt.Println(res.File, res.Location)
//
// # Main Packages
//
// ## Canvas Model
//
// [scene] - The scene graph of draft nodes: frames, groups and components
// with geometry, auto-layout, selection and grouping. Every mutation keeps
// the parent/child invariants; [scene.Snapshot] is the serializable form.
//
// [synth] - Renders a scene subtree as deterministic JSX markup plus the
// imports it needs.
//
// [viewport] - Animates the canvas camera toward navigation targets.
//
// ## Source Editing
//
// [source] - Markup scanner producing an element tree with exact
// line/column locations for JSX, TSX and HTML.
//
// [astwriter] - Location-addressed edits: insert a child, swap siblings.
// Failed edits return the text unchanged.
//
// [imports] - Import block parsing and merging.
//
// [instrument] - Stamps every element with a data-gc-source location so
// frames can report where a clicked element lives.
//
// ## Preview Plumbing
//
// [protocol] - The host side of the frame protocol: handshake state,
// request/response with timeouts, toggle rebroadcasts, keyboard reordering.
//
// [filesync] - Batches file changes into incremental or full-reset syncs.
//
// [preview] - Instruments synced files before they reach the frames.
//
// [vfs] - Project file systems: in-memory, on-disk with fsnotify watching,
// and MongoDB.
//
// ## Orchestration
//
// [materialize] - Turns a draft into source at a drop target, all or
// nothing.
//
// [session] - Wires one editing session together.
//
// ## Infrastructure
//
// [cache] - File, Redis and in-memory caches for instrumented copies and
// rendered scene diagrams.
//
// [config] - TOML settings with defaults.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for protocol, cache and materialize events.
//
// [render/scenedot] - Scene diagrams through Graphviz.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/astwriter/...          # Specific package
//
// [scene]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/scene
// [synth]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/synth
// [viewport]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/viewport
// [source]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/source
// [astwriter]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/astwriter
// [imports]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/imports
// [instrument]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/instrument
// [protocol]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/protocol
// [filesync]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/filesync
// [preview]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/preview
// [vfs]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/vfs
// [materialize]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/materialize
// [session]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/session
// [cache]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/observability
// [render/scenedot]: https://pkg.go.dev/github.com/matzehuels/ghostcanvas/pkg/render/scenedot
package pkg
