package goSession

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

var testEpoch = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)

type engineFixture struct {
	engine  *Engine
	mock    *transport.Mock
	clock   *clock.FakeClock
	backend *session.MemoryBackend
	logs    *bytes.Buffer
}

func newTestEngine(t *testing.T, mutate ...func(*Builder)) *engineFixture {
	t.Helper()

	identity, err := session.GenerateIdentity()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	fx := &engineFixture{
		mock:    transport.NewMock(transport.MockOptions{}),
		clock:   clock.Fake(testEpoch),
		backend: session.NewMemoryBackend(),
		logs:    &bytes.Buffer{},
	}
	cfg := DefaultConfig()
	cfg.Session.Backend = BackendMemory
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	b := New().
		WithConfig(cfg).
		WithBackend(fx.backend).
		WithIdentity(identity).
		WithTransport(fx.mock).
		WithClock(fx.clock).
		WithLogger(slog.New(slog.NewTextHandler(fx.logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	for _, m := range mutate {
		m(b)
	}
	fx.engine, err = b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = fx.engine.Close() })
	return fx
}

func TestLoginBlankCredentialsNeverReachTransport(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()

	for _, c := range [][2]string{{"", "x"}, {"x", ""}, {"   ", "123456"}, {"alumno@utng.edu.mx", "  "}} {
		_, err := fx.engine.Login(ctx, c[0], c[1])
		if !errors.Is(err, ErrCredentialsRequired) {
			t.Fatalf("Login(%q,%q): expected ErrCredentialsRequired, got %v", c[0], c[1], err)
		}
	}
	if got := fx.mock.Calls().Login; got != 0 {
		t.Fatalf("transport called %d times", got)
	}
}

func TestLoginBadEmailFormatNeverReachesTransport(t *testing.T) {
	fx := newTestEngine(t)

	_, err := fx.engine.Login(context.Background(), "bad-format", "123456")
	if !errors.Is(err, ErrInvalidEmailFormat) {
		t.Fatalf("expected ErrInvalidEmailFormat, got %v", err)
	}
	if got := fx.mock.Calls().Login; got != 0 {
		t.Fatalf("transport called %d times", got)
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricLoginValidationRejected]; got != 1 {
		t.Fatalf("expected validation rejection metric 1, got %d", got)
	}
}

func TestLoginKnownAccountsSucceed(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()

	for _, acct := range transport.DemoAccounts() {
		sess, err := fx.engine.Login(ctx, acct.Email, "123456")
		if err != nil {
			t.Fatalf("login %s: %v", acct.Email, err)
		}
		if sess.UserID != acct.ID || sess.Email != acct.Email || sess.DisplayName != acct.Name {
			t.Fatalf("identity mismatch for %s: %+v", acct.Email, sess)
		}
		if sess.IssuedAt != testEpoch.UnixMilli() {
			t.Fatalf("expected IssuedAt at fake now, got %d", sess.IssuedAt)
		}
		stored, err := fx.engine.CurrentSession(ctx)
		if err != nil {
			t.Fatalf("current session: %v", err)
		}
		if stored.Token != sess.Token {
			t.Fatal("stored token differs from returned token")
		}
		if !fx.engine.IsLoggedIn(ctx) {
			t.Fatal("expected logged in after login")
		}
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 3 {
		t.Fatalf("expected 3 login successes, got %d", got)
	}
}

func TestLoginWrongPasswordIndistinguishableFromUnknownUser(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()

	_, wrongPass := fx.engine.Login(ctx, "alumno@utng.edu.mx", "wrongpass")
	_, unknown := fx.engine.Login(ctx, "unknown@x.com", "123456")

	if !errors.Is(wrongPass, ErrLoginRejected) || !errors.Is(unknown, ErrLoginRejected) {
		t.Fatalf("expected rejections, got %v and %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPass, unknown)
	}
	if wrongPass.Error() != transport.MessageCredentialsWrong {
		t.Fatalf("unexpected message %q", wrongPass)
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("failed login must not create a session")
	}
}

func TestLoginTransportErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		text string
	}{
		{"401", &transport.StatusError{StatusCode: http.StatusUnauthorized}, ErrCredentialsIncorrect, "credentials incorrect"},
		{"404", &transport.StatusError{StatusCode: http.StatusNotFound}, ErrServiceUnavailable, "service unavailable"},
		{"500", &transport.StatusError{StatusCode: http.StatusInternalServerError}, ErrServerError, "server error"},
		{"503", &transport.StatusError{StatusCode: http.StatusServiceUnavailable}, ErrServerError, "server error"},
		{"418", &transport.StatusError{StatusCode: http.StatusTeapot}, ErrConnection, "connection error: 418"},
		{"network", errors.New("dial tcp 10.0.0.1:443: connect: refused"), ErrConnection, "connection error: dial tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newTestEngine(t)
			fx.mock.FailLogin(tt.err)

			_, err := fx.engine.Login(context.Background(), "alumno@utng.edu.mx", "123456")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !strings.HasPrefix(err.Error(), tt.text) {
				t.Fatalf("expected message prefix %q, got %q", tt.text, err.Error())
			}
		})
	}
}

func TestLoginStorageFailureSurfaces(t *testing.T) {
	fx := newTestEngine(t, func(b *Builder) {
		b.WithBackend(failingBackend{err: session.ErrUnavailable})
	})

	_, err := fx.engine.Login(context.Background(), "alumno@utng.edu.mx", "123456")
	if !errors.Is(err, ErrStorage) || !errors.Is(err, session.ErrUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestValidateTokenWithoutSessionSkipsTransport(t *testing.T) {
	fx := newTestEngine(t)

	valid, err := fx.engine.ValidateToken(context.Background())
	if err != nil || valid {
		t.Fatalf("expected (false, nil), got (%v, %v)", valid, err)
	}
	if got := fx.mock.Calls().Validate; got != 0 {
		t.Fatalf("transport called %d times", got)
	}
}

func TestValidateTokenRefreshesTimestamp(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "admin@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.clock.Advance(23 * time.Hour)
	valid, err := fx.engine.ValidateToken(ctx)
	if err != nil || !valid {
		t.Fatalf("expected valid token, got (%v, %v)", valid, err)
	}
	fx.clock.Advance(23 * time.Hour)
	if !fx.engine.IsLoggedIn(ctx) {
		t.Fatal("expected validation to extend the session window")
	}
}

func TestValidateTokenRejectedLogsOut(t *testing.T) {
	for _, name := range []string{"success_false", "http_401", "http_403"} {
		t.Run(name, func(t *testing.T) {
			fx := newTestEngine(t)
			ctx := context.Background()
			if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
				t.Fatalf("login: %v", err)
			}
			switch name {
			case "success_false":
				fx.mock.RejectTokens(true)
			case "http_401":
				fx.mock.FailValidate(&transport.StatusError{StatusCode: http.StatusUnauthorized})
			case "http_403":
				fx.mock.FailValidate(&transport.StatusError{StatusCode: http.StatusForbidden})
			}

			valid, err := fx.engine.ValidateToken(ctx)
			if err != nil || valid {
				t.Fatalf("expected (false, nil), got (%v, %v)", valid, err)
			}
			if fx.engine.IsLoggedIn(ctx) {
				t.Fatal("expected rejected token to clear the session")
			}
			if fx.mock.Calls().Logout != 1 {
				t.Fatalf("expected remote logout attempt, got %d", fx.mock.Calls().Logout)
			}
		})
	}
}

func TestValidateTokenUnavailableKeepsSession(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.mock.FailValidate(errors.New("i/o timeout"))
	valid, err := fx.engine.ValidateToken(ctx)
	if valid || !errors.Is(err, ErrValidationUnavailable) || !errors.Is(err, ErrConnection) {
		t.Fatalf("expected unavailable error, got (%v, %v)", valid, err)
	}
	fx.mock.FailValidate(&transport.StatusError{StatusCode: http.StatusBadGateway})
	if _, err := fx.engine.ValidateToken(ctx); !errors.Is(err, ErrServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if !fx.engine.IsLoggedIn(ctx) {
		t.Fatal("an unreachable server must not log the user out")
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricValidateError]; got != 2 {
		t.Fatalf("expected 2 validate errors, got %d", got)
	}
}

func TestValidateTokenAfterExpiryClearsWithoutTransport(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.clock.Advance(24 * time.Hour)
	valid, err := fx.engine.ValidateToken(ctx)
	if err != nil || valid {
		t.Fatalf("expected (false, nil), got (%v, %v)", valid, err)
	}
	if fx.mock.Calls().Validate != 0 {
		t.Fatal("expired session must not be validated remotely")
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("expected one expiry, got %d", got)
	}
}

func TestLogoutAlwaysClearsEvenWhenRemoteFails(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.mock.FailLogout(errors.New("server unreachable"))
	ok, err := fx.engine.Logout(ctx)
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("expected logged out after logout")
	}
	if _, err := fx.engine.CurrentSession(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricRemoteLogoutFailure]; got != 1 {
		t.Fatalf("expected remote logout failure metric, got %d", got)
	}

	// A second logout has no token and skips the server.
	ok, err = fx.engine.Logout(ctx)
	if err != nil || !ok {
		t.Fatalf("second logout: (%v, %v)", ok, err)
	}
	if fx.mock.Calls().Logout != 1 {
		t.Fatalf("expected exactly one remote logout, got %d", fx.mock.Calls().Logout)
	}
}

func TestTouchActivityDoesNotResurrect(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := fx.engine.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := fx.engine.TouchActivity(ctx); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("touch after logout must not log the user back in")
	}
}

func TestTouchActivityAfterExpiryClears(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.clock.Set(testEpoch.Add(48 * time.Hour))
	if err := fx.engine.TouchActivity(ctx); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("touch must not renew an elapsed session")
	}
	if _, err := fx.engine.CurrentSession(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("expected one expiry, got %d", got)
	}
}

func TestSessionStatusTracksWindow(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.clock.Advance(90 * time.Minute)
	st, err := fx.engine.SessionStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.LoggedIn || st.Age() != 90*time.Minute {
		t.Fatalf("expected logged in for 90m, got %+v", st)
	}
	if want := 24*time.Hour - 90*time.Minute; st.Remaining() != want {
		t.Fatalf("expected %v remaining, got %v", want, st.Remaining())
	}

	fx.clock.Set(testEpoch.Add(25 * time.Hour))
	st, err = fx.engine.SessionStatus(ctx)
	if err != nil {
		t.Fatalf("status after expiry: %v", err)
	}
	if st.LoggedIn {
		t.Fatal("expected logged-out status past the window")
	}
	if got := fx.engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 0 {
		t.Fatalf("status must not expire the session, got %d expiries", got)
	}

	_ = fx.engine.Close()
	if _, err := fx.engine.SessionStatus(ctx); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady after close, got %v", err)
	}
}

func TestEngineNeverLogsSecrets(t *testing.T) {
	fx := newTestEngine(t)
	ctx := context.Background()

	sess, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _ = fx.engine.Login(ctx, "alumno@utng.edu.mx", "secret123")
	_, _ = fx.engine.ValidateToken(ctx)
	_, _ = fx.engine.Logout(ctx)

	out := fx.logs.String()
	for _, secret := range []string{"secret123", sess.Token} {
		if strings.Contains(out, secret) {
			t.Fatalf("logs contain secret %q:\n%s", secret, out)
		}
	}
}

func TestClosedEngineNotReady(t *testing.T) {
	fx := newTestEngine(t)
	_ = fx.engine.Close()

	if _, err := fx.engine.Login(context.Background(), "alumno@utng.edu.mx", "123456"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	var nilEngine *Engine
	if nilEngine.IsLoggedIn(context.Background()) {
		t.Fatal("nil engine must report logged out")
	}
}

type panickingLogout struct {
	*transport.Mock
}

func (panickingLogout) Logout(context.Context, string) error { panic("transport exploded") }

func TestLogoutPanicClearsAndReportsFailure(t *testing.T) {
	mock := transport.NewMock(transport.MockOptions{})
	fx := newTestEngine(t, func(b *Builder) { b.WithTransport(panickingLogout{mock}) })
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "alumno@utng.edu.mx", "123456"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ok, err := fx.engine.Logout(ctx)
	if ok || !errors.Is(err, ErrLogoutAborted) {
		t.Fatalf("expected (false, ErrLogoutAborted), got (%v, %v)", ok, err)
	}
	if fx.engine.IsLoggedIn(ctx) {
		t.Fatal("local session must be cleared even when the transport panics")
	}
	if _, err := fx.engine.CurrentSession(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

type failingBackend struct {
	err error
}

func (f failingBackend) Get(context.Context, string) ([]byte, error) { return nil, session.ErrNotFound }
func (f failingBackend) Apply(context.Context, session.Batch) error  { return f.err }
func (f failingBackend) Close() error                                { return nil }
