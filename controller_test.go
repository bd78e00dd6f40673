package goSession

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
)

type scriptedAuth struct {
	mu    sync.Mutex
	calls []string

	loggedIn  bool
	sess      *session.Session
	loginErr  error
	logoutErr error
	valid     bool
	panicOn   string

	// loginGate, when set, holds Login until it receives.
	loginGate chan struct{}
}

func (a *scriptedAuth) record(name string) {
	a.mu.Lock()
	a.calls = append(a.calls, name)
	panicOn := a.panicOn
	a.mu.Unlock()
	if panicOn == name {
		panic(name + " exploded")
	}
}

func (a *scriptedAuth) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

func (a *scriptedAuth) Login(ctx context.Context, email, password string) (*session.Session, error) {
	a.record("login")
	if a.loginGate != nil {
		select {
		case <-a.loginGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return &session.Session{Token: "tok", UserID: "1", Email: email, DisplayName: "Estudiante Demo"}, nil
}

func (a *scriptedAuth) IsLoggedIn(context.Context) bool { return a.loggedIn }

func (a *scriptedAuth) CurrentSession(context.Context) (*session.Session, error) {
	if a.sess == nil {
		return nil, session.ErrNoSession
	}
	return a.sess, nil
}

func (a *scriptedAuth) ValidateToken(context.Context) (bool, error) {
	a.record("validate")
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.valid, nil
}

func (a *scriptedAuth) Logout(context.Context) (bool, error) {
	a.record("logout")
	if a.logoutErr != nil {
		return false, a.logoutErr
	}
	return true, nil
}

func (a *scriptedAuth) TouchActivity(context.Context) error {
	a.record("touch")
	return nil
}

func waitController(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("controller did not settle: %v", err)
	}
}

func newTestController(t *testing.T, auth AuthSession, opts ControllerOptions) *Controller {
	t.Helper()
	c := NewController(context.Background(), auth, opts)
	t.Cleanup(c.Close)
	return c
}

func TestControllerStartsIdleWithoutSession(t *testing.T) {
	fx := newTestEngine(t)
	c := newTestController(t, fx.engine, ControllerOptions{ValidateOnStartup: true})

	if got := c.State().Kind; got != StateIdle {
		t.Fatalf("expected idle, got %v", got)
	}
	if c.CurrentSession() != nil {
		t.Fatal("expected no current session")
	}
	waitController(t, c)
	if fx.mock.Calls().Validate != 0 {
		t.Fatal("startup with no session must not validate")
	}
}

func TestControllerLoginPublishesLoadingThenAuthenticated(t *testing.T) {
	auth := &scriptedAuth{loginGate: make(chan struct{})}
	c := newTestController(t, auth, ControllerOptions{})

	if err := c.Login("alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := c.State().Kind; got != StateLoading {
		t.Fatalf("expected loading right after Login, got %v", got)
	}

	close(auth.loginGate)
	waitController(t, c)

	st := c.State()
	if st.Kind != StateAuthenticated || st.Session == nil || st.Session.Email != "alumno@utng.edu.mx" {
		t.Fatalf("expected authenticated state, got %v", st)
	}
	if c.CurrentSession() != st.Session {
		t.Fatal("current session should match the published state")
	}
}

func TestControllerLoginFailureCarriesReason(t *testing.T) {
	fx := newTestEngine(t)
	c := newTestController(t, fx.engine, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "wrongpass")
	waitController(t, c)

	st := c.State()
	if st.Kind != StateFailed || st.Reason != "Credentials incorrect" {
		t.Fatalf("expected failed(Credentials incorrect), got %v", st)
	}

	c.ResetToIdle()
	if got := c.State().Kind; got != StateIdle {
		t.Fatalf("expected idle after reset, got %v", got)
	}
}

func TestControllerValidationFailureReason(t *testing.T) {
	fx := newTestEngine(t)
	c := newTestController(t, fx.engine, ControllerOptions{})

	_ = c.Login("", "")
	waitController(t, c)
	if st := c.State(); st.Reason != ErrCredentialsRequired.Error() {
		t.Fatalf("unexpected reason %q", st.Reason)
	}
	_ = c.Login("bad-format", "123456")
	waitController(t, c)
	if st := c.State(); st.Reason != ErrInvalidEmailFormat.Error() {
		t.Fatalf("unexpected reason %q", st.Reason)
	}
}

func TestControllerRestoresStoredSession(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	sess, err := fx.engine.Login(ctx, "profesor@utng.edu.mx", "123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	c := newTestController(t, fx.engine, ControllerOptions{ValidateOnStartup: true})
	waitController(t, c)

	st := c.State()
	if st.Kind != StateAuthenticated || st.Session.UserID != sess.UserID || st.Session.Token != sess.Token {
		t.Fatalf("expected restored session, got %v", st)
	}
	if fx.mock.Calls().Validate != 1 {
		t.Fatalf("expected one startup validation, got %d", fx.mock.Calls().Validate)
	}
}

func TestControllerStartupValidationRejectsStaleToken(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "profesor@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}
	fx.mock.RejectTokens(true)

	c := newTestController(t, fx.engine, ControllerOptions{ValidateOnStartup: true})
	waitController(t, c)

	if got := c.State().Kind; got != StateLoggedOut {
		t.Fatalf("expected logged out, got %v", got)
	}
	if c.CurrentSession() != nil {
		t.Fatal("expected current session cleared")
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("expected local session cleared")
	}
}

func TestControllerStartupValidationDisabled(t *testing.T) {
	fx := newTestEngine(t)
	if _, err := fx.engine.Login(context.Background(), "admin@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	c := newTestController(t, fx.engine, ControllerOptions{})
	waitController(t, c)

	if got := c.State().Kind; got != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", got)
	}
	if fx.mock.Calls().Validate != 0 {
		t.Fatal("validation was disabled")
	}
}

func TestControllerActionsRunInOrder(t *testing.T) {
	auth := &scriptedAuth{valid: true}
	c := newTestController(t, auth, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "123456")
	_ = c.TouchActivity()
	_ = c.ValidateToken()
	_ = c.Logout()
	_ = c.Login("alumno@utng.edu.mx", "123456")
	waitController(t, c)

	want := []string{"login", "touch", "validate", "logout", "login"}
	if got := auth.Calls(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := c.State().Kind; got != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", got)
	}
}

func TestControllerValidateOutcomes(t *testing.T) {
	auth := &scriptedAuth{valid: true}
	c := newTestController(t, auth, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "123456")
	_ = c.ValidateToken()
	waitController(t, c)
	if got := c.State().Kind; got != StateAuthenticated {
		t.Fatalf("valid token must keep state, got %v", got)
	}

	auth.mu.Lock()
	auth.valid = false
	auth.mu.Unlock()
	_ = c.ValidateToken()
	waitController(t, c)
	if got := c.State().Kind; got != StateLoggedOut {
		t.Fatalf("rejected token must log out, got %v", got)
	}
}

func TestControllerLogoutEndsLoggedOutOnError(t *testing.T) {
	auth := &scriptedAuth{logoutErr: errors.New("disk gone")}
	c := newTestController(t, auth, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "123456")
	_ = c.Logout()
	waitController(t, c)

	if got := c.State().Kind; got != StateLoggedOut {
		t.Fatalf("expected logged out, got %v", got)
	}
	if c.CurrentSession() != nil {
		t.Fatal("expected no session after logout")
	}
}

func TestControllerSubscribeConflates(t *testing.T) {
	fx := newTestEngine(t)
	c := newTestController(t, fx.engine, ControllerOptions{})

	ch, cancel := c.Subscribe()
	if st := <-ch; st.Kind != StateIdle {
		t.Fatalf("expected current state first, got %v", st)
	}

	_ = c.Login("alumno@utng.edu.mx", "123456")
	waitController(t, c)

	select {
	case st := <-ch:
		if st.Kind != StateAuthenticated {
			t.Fatalf("expected latest state authenticated, got %v", st)
		}
	default:
		t.Fatal("expected a pending state")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}
}

func TestControllerRecoversFromPanics(t *testing.T) {
	auth := &scriptedAuth{panicOn: "login"}
	c := newTestController(t, auth, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "123456")
	waitController(t, c)
	if st := c.State(); st.Kind != StateFailed || st.Reason != "login exploded" {
		t.Fatalf("expected failed state from panic, got %v", st)
	}

	auth.mu.Lock()
	auth.panicOn = "logout"
	auth.mu.Unlock()
	_ = c.Logout()
	waitController(t, c)
	if got := c.State().Kind; got != StateLoggedOut {
		t.Fatalf("expected logged out after panicking logout, got %v", got)
	}
}

func TestControllerWaitHonorsContext(t *testing.T) {
	auth := &scriptedAuth{loginGate: make(chan struct{})}
	c := newTestController(t, auth, ControllerOptions{})

	_ = c.Login("alumno@utng.edu.mx", "123456")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(auth.loginGate)
	waitController(t, c)
}

func TestControllerCloseDrainsAndRejects(t *testing.T) {
	auth := &scriptedAuth{}
	c := NewController(context.Background(), auth, ControllerOptions{})
	ch, _ := c.Subscribe()

	_ = c.Login("alumno@utng.edu.mx", "123456")
	_ = c.Logout()
	c.Close()
	c.Close()

	if got := auth.Calls(); !slices.Equal(got, []string{"login", "logout"}) {
		t.Fatalf("queued actions should finish before close, got %v", got)
	}
	if err := c.Login("alumno@utng.edu.mx", "123456"); !errors.Is(err, ErrControllerClosed) {
		t.Fatalf("expected ErrControllerClosed, got %v", err)
	}
	for range ch {
	}
	late, _ := c.Subscribe()
	if st, ok := <-late; !ok || st.Kind != StateLoggedOut {
		t.Fatalf("late subscriber should see final state, got %v %v", st, ok)
	}
}
