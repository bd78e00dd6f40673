// Package rate throttles failed logins on the reference server with
// fixed-window Redis counters: INCR, then EXPIRE on the first hit.
//
// Key layout, under the configured prefix:
//   - <prefix>:al:<email>  failed logins per account
//   - <prefix>:ali:<ip>    failed logins per client address
package rate
