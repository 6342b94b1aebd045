// Package instrument stamps every markup element of a UI source file with
// its own source location, producing a shadow copy for the preview sandbox.
//
// The stamp is a data attribute inserted right after the tag name:
//
//	<Button label="Go" />
//	<Button data-gc-source="/App.tsx:7:7" label="Go" />
//
// Data attributes do not change rendered output, so the preview looks the
// same while every clicked DOM node can be traced back to its opening tag
// in the pristine file. Fragments cannot carry attributes and are skipped.
//
// [Instrumenter] memoizes results by the exact (path, text) pair and can be
// backed by any [cache.Cache]; identical input never re-runs the transform.
// [Tracker] keeps the last good output per path so a file that stops
// parsing keeps serving its previous version.
package instrument
