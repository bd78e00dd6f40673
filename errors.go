package goSession

import "errors"

var (
	// ErrCredentialsRequired is returned when the email or password is blank.
	ErrCredentialsRequired = errors.New("email and password are required")
	// ErrInvalidEmailFormat is returned when the email is not an address.
	ErrInvalidEmailFormat = errors.New("invalid email format")
	// ErrLoginRejected matches every *RejectedError.
	ErrLoginRejected = errors.New("login rejected")
	// ErrCredentialsIncorrect maps an HTTP 401 from the auth service.
	ErrCredentialsIncorrect = errors.New("credentials incorrect")
	// ErrServiceUnavailable maps an HTTP 404 from the auth service.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrServerError maps an HTTP 5xx from the auth service.
	ErrServerError = errors.New("server error")
	// ErrConnection covers other status codes and transport failures.
	ErrConnection = errors.New("connection error")
	// ErrValidationUnavailable is returned when a token check could not be
	// completed. The local session is left untouched.
	ErrValidationUnavailable = errors.New("token validation unavailable")
	// ErrStorage wraps failures of the local session store.
	ErrStorage = errors.New("session storage error")
	// ErrLogoutAborted is returned when logout was cut short by a panic.
	// The local session has still been cleared.
	ErrLogoutAborted = errors.New("logout aborted")
	// ErrEngineNotReady is returned by a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrControllerClosed is returned by a Controller after Close.
	ErrControllerClosed = errors.New("controller closed")
)

const defaultRejectMessage = "login failed"

// RejectedError carries the server's refusal message verbatim, so a wrong
// password and an unknown account read the same to the caller.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return defaultRejectMessage
	}
	return e.Message
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrLoginRejected
}
