package transport

import (
	"context"
	"fmt"
	"net/http"
)

// Transport is the remote side of the session lifecycle.
type Transport interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Validate(ctx context.Context, token string) (*ValidateResponse, error)
	Logout(ctx context.Context, token string) error
}

// Credentials is the login request body. It is never persisted.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the authenticated identity returned by a successful login.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// LoginResponse is the login reply. User is set only when Success is true.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

// ValidateResponse is the token validation reply.
type ValidateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
