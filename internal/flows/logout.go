package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
)

type LogoutTransport interface {
	Logout(ctx context.Context, token string) error
}

type LogoutSessionStore interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Transport    LogoutTransport
	SessionStore LogoutSessionStore
}

// LogoutResult reports what happened on each side. RemoteErr is
// informational: the local session is cleared regardless.
type LogoutResult struct {
	HadToken  bool
	RemoteErr error
	TokenErr  error
	ClearErr  error
}

// RunLogout notifies the server when a token is present and always clears
// local state, including when the transport panics.
func RunLogout(ctx context.Context, deps LogoutDeps) (res LogoutResult) {
	defer func() {
		res.ClearErr = deps.SessionStore.Clear(context.WithoutCancel(ctx))
	}()

	token, err := deps.SessionStore.Token(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			res.TokenErr = err
		}
		return res
	}

	res.HadToken = true
	res.RemoteErr = deps.Transport.Logout(ctx, token)
	return res
}
