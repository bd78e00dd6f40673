// Package password hashes and verifies passwords with Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes made with weaker parameters so the
// caller can re-hash after the next successful login. The package never
// stores passwords and never logs them.
package password
