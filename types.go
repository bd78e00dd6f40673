package goSession

import (
	"fmt"

	"github.com/MrEthical07/goSession/session"
)

// Session is the locally stored authenticated identity.
type Session = session.Session

// SessionStatus is a read-only view of the stored session window.
type SessionStatus = session.Status

// StateKind enumerates the controller states.
type StateKind uint8

const (
	// StateIdle is the initial state and the state after ResetToIdle.
	StateIdle StateKind = iota
	// StateLoading means a login or logout is queued or running.
	StateLoading
	// StateAuthenticated carries the active session.
	StateAuthenticated
	// StateFailed carries the reason of the last failed login.
	StateFailed
	// StateLoggedOut follows a logout or a rejected token.
	StateLoggedOut
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	case StateLoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("state(%d)", uint8(k))
	}
}

// State is the controller's observable value. Session is set only for
// StateAuthenticated and Reason only for StateFailed.
type State struct {
	Kind    StateKind
	Session *Session
	Reason  string
}

func (s State) String() string {
	switch s.Kind {
	case StateAuthenticated:
		if s.Session != nil {
			return "authenticated(" + s.Session.Email + ")"
		}
	case StateFailed:
		return "failed(" + s.Reason + ")"
	}
	return s.Kind.String()
}

func idleState() State      { return State{Kind: StateIdle} }
func loadingState() State   { return State{Kind: StateLoading} }
func loggedOutState() State { return State{Kind: StateLoggedOut} }

func authenticatedState(sess *Session) State {
	return State{Kind: StateAuthenticated, Session: sess}
}

func failedState(reason string) State {
	return State{Kind: StateFailed, Reason: reason}
}
