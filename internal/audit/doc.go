// Package audit delivers session lifecycle events to pluggable sinks.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, fan-out, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full behavior.
//   - [Event]: audit record with a unique id, type, user, outcome and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events are emitted, and
// when, is decided by the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Record credentials or tokens.
//   - Import goSession or any sibling internal package.
package audit
