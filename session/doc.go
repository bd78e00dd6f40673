// Package session provides the encrypted, expiring local store that holds
// the authenticated user's session between application runs.
//
// # Storage model
//
// A session is persisted as a flat set of entries (token, user id, email,
// display name, logged-in flag, timestamp). Each value is CBOR-encoded and
// then sealed with an age X25519 identity, and each entry name is replaced
// by a keyed BLAKE3 digest, so a [Backend] only ever sees opaque keys and
// ciphertext.
//
// # Expiry
//
// Every read checks the stored timestamp against the configured window
// (24 hours by default). A read that finds the window elapsed clears the
// store before reporting [ErrNoSession], so callers must tolerate a read
// causing a write.
//
// # Architecture boundaries
//
// This package owns persistence, encryption and the expiry rule only. It
// does not talk to the network or decide when a session should be
// revalidated; those belong to the Engine.
//
// # What this package must NOT do
//
//   - Log or return key material.
//   - Persist credentials (email/password pairs), only the issued token.
//   - Resurrect a session that has been cleared.
package session
