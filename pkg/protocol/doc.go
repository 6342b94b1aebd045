// Package protocol implements the host side of the message protocol
// between the editor and its sandboxed preview frames.
//
// A preview frame is only reachable through messages and reloads whenever
// its files change, so the host never assumes a message arrived. Global
// toggles (inspection mode, flow mode) are re-broadcast after a short
// delay on three independent triggers:
//
//   - the toggle changes locally
//   - the sandbox reports that its build settled
//   - a frame reports that its inspector is ready
//
// Whichever listener attaches last still receives the current values.
// Frames treat a repeated value as a no-op (see [FrameState]).
//
// Coordinate queries use request/response with at most one request in
// flight per [Host]. A newer request cancels the older one, and a request
// that is not answered within the timeout resolves as a negative answer.
//
// Wire format is JSON: {"type": ..., "payload": ..., "requestId": ...}.
package protocol
