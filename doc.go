// Package inkwell is an embeddable rich-text block editor core.
//
// The core has two coupled halves. The reconciler (pkg/vdom) renders a
// declarative node tree into a host-managed visual tree, mutating only
// what changed between renders. The editing engine (pkg/editor and its
// collaborators) reimplements text-editing primitives a native widget
// would otherwise provide: per-block run storage (pkg/textmodel), a
// logical selection with observers (pkg/selection), a measured caret
// overlay (pkg/caret), and raw-input interception with IME and paste
// handling (pkg/input).
//
// The core never touches a concrete platform. Everything it needs from
// the outside world is the capability surface in pkg/host; hostmem
// implements it in memory for tests, and pkg/remotehost drives a
// browser DOM over a websocket connection using the binary codec in
// pkg/protocol.
//
// This package re-exports the public facade so embedders can depend on
// a single import.
package inkwell
