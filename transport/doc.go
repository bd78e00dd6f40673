// Package transport talks to the authentication endpoint on behalf of the
// session engine.
//
// # Implementations
//
//   - [HTTPClient]: JSON over HTTP against a remote auth API.
//   - [Mock]: deterministic in-process stub with fixed demo accounts,
//     simulated latency and fault injection.
//
// # Result model
//
// Application-level refusals (wrong password, rejected token) come back as
// values with Success=false. Only transport failures are errors: a
// [*StatusError] for non-2xx HTTP responses, a wrapped cause otherwise.
//
// # Logging
//
// Request and response bodies are logged only after passing through
// [Redact], which masks passwords, bearer tokens and token fields.
//
// # What this package must NOT do
//
//   - Persist anything.
//   - Interpret status codes beyond reporting them.
//   - Import goSession (to avoid import cycles).
package transport
