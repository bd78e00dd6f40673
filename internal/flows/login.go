package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureMissingCredentials
	LoginFailureInvalidEmail
	LoginFailureTransport
	LoginFailureRejected
	LoginFailureStorage
)

type LoginTransport interface {
	Login(ctx context.Context, creds transport.Credentials) (*transport.LoginResponse, error)
}

type LoginSessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Transport    LoginTransport
	SessionStore LoginSessionStore
	ValidEmail   func(string) bool
}

// LoginResult carries either the saved session or a classified failure.
// Message is the server's refusal text for LoginFailureRejected.
type LoginResult struct {
	Session *session.Session
	Failure LoginFailureKind
	Message string
	Err     error
}

// RunLogin validates input locally, asks the transport, and persists the
// returned identity. Nothing reaches the transport before the local checks
// pass.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return LoginResult{Failure: LoginFailureMissingCredentials}
	}
	if deps.ValidEmail != nil && !deps.ValidEmail(email) {
		return LoginResult{Failure: LoginFailureInvalidEmail}
	}

	resp, err := deps.Transport.Login(ctx, transport.Credentials{Email: email, Password: password})
	if err != nil {
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}
	if resp == nil || !resp.Success || resp.User == nil {
		var msg string
		if resp != nil {
			msg = resp.Message
		}
		return LoginResult{Failure: LoginFailureRejected, Message: msg}
	}

	sess := &session.Session{
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		DisplayName: resp.User.Name,
		Token:       resp.User.Token,
	}
	if !sess.Complete() {
		return LoginResult{Failure: LoginFailureRejected, Message: resp.Message}
	}
	if err := deps.SessionStore.Save(ctx, sess); err != nil {
		return LoginResult{Failure: LoginFailureStorage, Err: err}
	}
	return LoginResult{Session: sess}
}
