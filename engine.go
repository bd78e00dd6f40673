package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// Engine is the session repository: it validates login input, talks to the
// transport and keeps the local encrypted session in step with the server.
type Engine struct {
	config    Config
	store     *session.Store
	backend   session.Backend
	transport transport.Transport
	flows     flows.Deps
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	clock     clock.Clock

	ownsBackend bool
	closed      atomic.Bool
}

// Close flushes pending audit events and releases a backend the engine
// opened itself. It is safe to call more than once.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsBackend && e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// AuditDropped reports audit events lost to a full dispatcher buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditCounts reports accepted audit events per type, sorted by type.
func (e *Engine) AuditCounts() []AuditTypeCount {
	if e == nil || e.audit == nil {
		return nil
	}
	return e.audit.Counts()
}

// SessionStatus reports the stored session window. Unlike CurrentSession
// it never clears an elapsed session.
func (e *Engine) SessionStatus(ctx context.Context) (SessionStatus, error) {
	if !e.ready() {
		return SessionStatus{}, ErrEngineNotReady
	}
	st, err := e.store.Status(ctx)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return st, nil
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && !e.closed.Load()
}

// Login checks the input locally, authenticates with the transport and
// stores the returned session. The error matches one of ErrCredentialsRequired,
// ErrInvalidEmailFormat, ErrLoginRejected, ErrCredentialsIncorrect,
// ErrServiceUnavailable, ErrServerError, ErrConnection or ErrStorage.
func (e *Engine) Login(ctx context.Context, email, password string) (*session.Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := e.clock.Now()
	res := flows.RunLogin(ctx, email, password, e.flows.Login)

	var err error
	switch res.Failure {
	case flows.LoginFailureNone:
		e.metrics.Observe(MetricLoginLatency, e.clock.Now().Sub(start))
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionSaved)
		e.logger.InfoContext(ctx, "login succeeded", slog.String("user_id", res.Session.UserID))
		e.logger.DebugContext(ctx, "login identity", slog.String("email", res.Session.Email))
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.Session.UserID, res.Session.Email, nil, nil)
		return res.Session, nil
	case flows.LoginFailureMissingCredentials:
		e.metricInc(MetricLoginValidationRejected)
		return nil, ErrCredentialsRequired
	case flows.LoginFailureInvalidEmail:
		e.metricInc(MetricLoginValidationRejected)
		return nil, ErrInvalidEmailFormat
	case flows.LoginFailureRejected:
		err = &RejectedError{Message: res.Message}
	case flows.LoginFailureTransport:
		err = mapTransportError(res.Err)
	case flows.LoginFailureStorage:
		err = fmt.Errorf("%w: %w", ErrStorage, res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metrics.Observe(MetricLoginLatency, e.clock.Now().Sub(start))
	e.metricInc(MetricLoginFailure)
	e.logger.WarnContext(ctx, "login failed", slog.String("reason", err.Error()))
	e.emitAudit(ctx, auditEventLoginFailure, false, "", email, err, nil)
	return nil, err
}

// IsLoggedIn reports the locally stored login flag combined with the
// expiry check. It never contacts the server.
func (e *Engine) IsLoggedIn(ctx context.Context) bool {
	if !e.ready() {
		return false
	}
	ok, err := e.store.LoggedIn(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "reading login flag failed", slog.String("error", err.Error()))
		return false
	}
	return ok
}

// CurrentSession returns the stored session. A missing, partial or expired
// session yields session.ErrNoSession.
func (e *Engine) CurrentSession(ctx context.Context) (*session.Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	sess, err := e.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return sess, nil
}

// ValidateToken asks the server whether the stored token is still good.
// A confirmed token refreshes the local timestamp. A rejected token logs
// the user out and reports (false, nil). When the check cannot complete
// the session is kept and the error matches ErrValidationUnavailable.
func (e *Engine) ValidateToken(ctx context.Context) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}

	res := flows.RunValidate(ctx, e.flows.Validate)
	switch res.Outcome {
	case flows.ValidateNoSession:
		return false, nil

	case flows.ValidateValid:
		e.metricInc(MetricValidateSuccess)
		e.emitAudit(ctx, auditEventTokenValidated, true, "", "", nil, nil)
		if res.Err != nil {
			e.logger.WarnContext(ctx, "refreshing session timestamp failed", slog.String("error", res.Err.Error()))
			return true, fmt.Errorf("%w: %w", ErrStorage, res.Err)
		}
		e.metricInc(MetricActivityTouch)
		return true, nil

	case flows.ValidateRejected:
		e.metricInc(MetricValidateRejected)
		e.logger.InfoContext(ctx, "token rejected by server, logging out", slog.String("message", res.Message))
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", nil, func() map[string]string {
			return map[string]string{"message": res.Message}
		})
		if _, err := e.Logout(ctx); err != nil {
			e.logger.WarnContext(ctx, "logout after token rejection failed", slog.String("error", err.Error()))
		}
		return false, nil

	case flows.ValidateStorageFailed:
		e.metricInc(MetricValidateError)
		err := fmt.Errorf("%w: %w", ErrStorage, res.Err)
		e.emitAudit(ctx, auditEventTokenValidationError, false, "", "", err, nil)
		return false, err

	default:
		e.metricInc(MetricValidateError)
		err := fmt.Errorf("%w: %w", ErrValidationUnavailable, mapTransportError(res.Err))
		e.logger.WarnContext(ctx, "token validation unavailable", slog.String("error", err.Error()))
		e.emitAudit(ctx, auditEventTokenValidationError, false, "", "", err, nil)
		return false, err
	}
}

// Logout notifies the server when a token is stored and always clears the
// local session. Server failures are logged and otherwise ignored. It
// returns (false, err) only when local storage failed or the remote call
// panicked; in the latter case the session is still cleared.
func (e *Engine) Logout(ctx context.Context) (ok bool, err error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w: %v", ErrLogoutAborted, r)
			e.metricInc(MetricLogout)
			e.logger.ErrorContext(ctx, "logout panicked after clearing local session",
				slog.String("panic", fmt.Sprint(r)))
			e.emitAudit(ctx, auditEventLogout, false, "", "", err, nil)
		}
	}()

	res := flows.RunLogout(ctx, e.flows.Logout)
	e.metricInc(MetricLogout)

	if res.RemoteErr != nil {
		e.metricInc(MetricRemoteLogoutFailure)
		e.logger.WarnContext(ctx, "server logout failed, cleared local session anyway",
			slog.String("error", res.RemoteErr.Error()))
		e.emitAudit(ctx, auditEventRemoteLogoutFailed, false, "", "", mapTransportError(res.RemoteErr), nil)
	}
	if res.ClearErr == nil {
		e.metricInc(MetricSessionCleared)
	}

	switch {
	case res.TokenErr != nil:
		err = fmt.Errorf("%w: %w", ErrStorage, res.TokenErr)
	case res.ClearErr != nil:
		err = fmt.Errorf("%w: %w", ErrStorage, res.ClearErr)
	}
	e.emitAudit(ctx, auditEventLogout, err == nil, "", "", err, func() map[string]string {
		return map[string]string{"remote": remoteOutcome(res)}
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "logout storage failure", slog.String("error", err.Error()))
		return false, err
	}
	e.logger.InfoContext(ctx, "logged out")
	return true, nil
}

// TouchActivity moves the session timestamp to now. It does nothing when
// no session is stored.
func (e *Engine) TouchActivity(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.store.Touch(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	e.metricInc(MetricActivityTouch)
	return nil
}

func remoteOutcome(res flows.LogoutResult) string {
	switch {
	case !res.HadToken:
		return "skipped"
	case res.RemoteErr != nil:
		return "failed"
	default:
		return "ok"
	}
}

// mapTransportError turns a transport failure into the public error set.
func mapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var se *transport.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized:
			return ErrCredentialsIncorrect
		case se.StatusCode == http.StatusNotFound:
			return ErrServiceUnavailable
		case se.StatusCode >= 500 && se.StatusCode <= 599:
			return ErrServerError
		default:
			return fmt.Errorf("%w: %d", ErrConnection, se.StatusCode)
		}
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}
