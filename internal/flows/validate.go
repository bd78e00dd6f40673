package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// ValidateOutcome classifies a remote token check.
type ValidateOutcome int

const (
	// ValidateNoSession means there was no local token; the transport was
	// not called.
	ValidateNoSession ValidateOutcome = iota
	ValidateValid
	// ValidateRejected means the server said the token is no longer valid.
	ValidateRejected
	// ValidateUnavailable means the check could not be completed.
	ValidateUnavailable
	// ValidateStorageFailed means the local token could not be read.
	ValidateStorageFailed
)

type ValidateTransport interface {
	Validate(ctx context.Context, token string) (*transport.ValidateResponse, error)
}

type ValidateSessionStore interface {
	Token(ctx context.Context) (string, error)
	Touch(ctx context.Context) error
}

// ValidateDeps captures validate flow dependencies.
type ValidateDeps struct {
	Transport    ValidateTransport
	SessionStore ValidateSessionStore
}

// ValidateResult reports the outcome. For ValidateValid, Err is a failed
// timestamp refresh, if any.
type ValidateResult struct {
	Outcome ValidateOutcome
	Message string
	Err     error
}

// RunValidate checks the stored token with the server and refreshes the
// local timestamp on success. It never clears the session; the caller does
// that on ValidateRejected.
func RunValidate(ctx context.Context, deps ValidateDeps) ValidateResult {
	token, err := deps.SessionStore.Token(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return ValidateResult{Outcome: ValidateNoSession}
		}
		return ValidateResult{Outcome: ValidateStorageFailed, Err: err}
	}

	resp, err := deps.Transport.Validate(ctx, token)
	if err != nil {
		if IsExplicitRejection(err) {
			return ValidateResult{Outcome: ValidateRejected, Message: err.Error()}
		}
		return ValidateResult{Outcome: ValidateUnavailable, Err: err}
	}
	if resp == nil || !resp.Success {
		var msg string
		if resp != nil {
			msg = resp.Message
		}
		return ValidateResult{Outcome: ValidateRejected, Message: msg}
	}

	return ValidateResult{Outcome: ValidateValid, Err: deps.SessionStore.Touch(ctx)}
}

// IsExplicitRejection reports whether err is an HTTP answer that says the
// credential itself is bad, as opposed to the service being unreachable.
func IsExplicitRejection(err error) bool {
	var se *transport.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}
