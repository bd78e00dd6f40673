package session

import "errors"

var (
	// ErrNoSession is returned by reads when no complete, unexpired
	// session is stored.
	ErrNoSession = errors.New("no session")

	// ErrIncompleteSession is returned by Save when an identity field is
	// empty.
	ErrIncompleteSession = errors.New("incomplete session")

	// ErrNotFound is returned by a Backend when a key does not exist.
	ErrNotFound = errors.New("session entry not found")

	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("session backend unavailable")

	// ErrCorrupt is returned when a stored entry cannot be decrypted or
	// decoded, for example after the identity file was replaced.
	ErrCorrupt = errors.New("session entry corrupt")
)
