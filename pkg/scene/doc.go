// Package scene is the in-memory scene graph of draft ("ghost") canvas
// nodes.
//
// The graph is a flat arena: a [Store] owns every [Node] in an id→node map,
// children are ordered id lists and each node has at most one parent id.
// Integrity is enforced procedurally on every mutation:
//
//   - a node with a parent appears exactly once in that parent's children
//   - a node without a parent appears exactly once in the root list
//   - no node is its own ancestor
//   - selected ids exist and the primary id is one of them
//
// Geometry is parent-local: (X, Y) is relative to the parent's origin and
// [Store.WorldPosition] accumulates ancestor offsets. Any operation that
// moves nodes between parents converts through world coordinates first.
//
// Each mutating method re-reads the store under its lock at the moment it
// runs, so callers driven by interleaved events (pointer input, timers,
// frame messages) never act on a stale read. Failed operations leave the
// store untouched.
package scene
