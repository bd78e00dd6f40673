// Package server is a reference implementation of the auth API the
// session client talks to: login, validate and logout under auth/.
//
// Accounts live in a Directory with Argon2id hashes, tokens are JWTs from
// a jwt.Manager, and logged out tokens are remembered in a Revocations
// set until they would have expired anyway. Failed logins can be
// throttled with a Redis-backed limiter.
package server
