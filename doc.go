// Package goSession manages the login and session lifecycle of a client
// application: encrypted local session storage with a rolling expiry, an
// authentication transport, a session repository ([Engine]) and an
// observable state machine ([Controller]) that serializes user actions.
//
// The Engine is safe to call from multiple goroutines after construction
// through [Builder.Build] or [Open]. The Controller owns a single worker
// goroutine and runs queued actions strictly in order.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Controller],
// [Builder], [Config] and value types ([State], [MetricsSnapshot],
// [AuditEvent]). Storage encryption lives in the session package, remote
// calls in the transport package, and flow orchestration under internal/.
//
// # What this package must NOT do
//
//   - Log or audit passwords or tokens.
//   - Keep package-level mutable state. Every store, transport and engine
//     is constructed explicitly.
//   - Retry failed remote calls on its own.
//   - Render UI, route screens or own any presentation concern.
package goSession
