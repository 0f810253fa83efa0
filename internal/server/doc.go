// Package server implements the Huddle room session protocol: a registry of
// code-addressed chat rooms, the per-connection session state machine, and
// the JSON envelope codec spoken over WebSocket.
//
// The implementation is organized into specialized files for the registry,
// rooms, sessions, configuration, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
