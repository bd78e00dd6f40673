// Package flows contains the orchestration behind each Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunLogout) accepts a typed
// dependency struct and returns a classified result. Mapping results to
// public errors, metrics, logs and audit events stays with the Engine.
//
// # Architecture boundaries
//
// Flows coordinate the transport and the session store. They do NOT own
// either; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency interfaces.
package flows
