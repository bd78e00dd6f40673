package goSession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrEthical07/goSession/session"
)

// AuthSession is the repository a Controller drives. *Engine implements it.
type AuthSession interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	IsLoggedIn(ctx context.Context) bool
	CurrentSession(ctx context.Context) (*session.Session, error)
	ValidateToken(ctx context.Context) (bool, error)
	Logout(ctx context.Context) (bool, error)
	TouchActivity(ctx context.Context) error
}

// ControllerOptions tunes a Controller.
type ControllerOptions struct {
	// ValidateOnStartup queues a ValidateToken when a stored session was
	// restored.
	ValidateOnStartup bool

	Logger *slog.Logger
}

type actionKind uint8

const (
	actionLogin actionKind = iota
	actionValidate
	actionLogout
	actionTouch
)

func (k actionKind) String() string {
	switch k {
	case actionLogin:
		return "login"
	case actionValidate:
		return "validate"
	case actionLogout:
		return "logout"
	default:
		return "touch"
	}
}

type action struct {
	kind     actionKind
	email    string
	password string
}

// Controller is the observable login state machine. User actions are
// queued and executed one at a time, in order, on a single worker
// goroutine; calls never block on I/O.
type Controller struct {
	auth   AuthSession
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	current *session.Session
	queue   []action
	// inflight counts queued plus running actions.
	inflight int
	idle     chan struct{}
	subs     map[int]chan State
	nextSub  int
	closed   bool

	done chan struct{}
}

// NewController starts a controller over auth. When a valid session is
// stored locally the controller starts Authenticated with it; otherwise it
// starts Idle. ctx bounds every action the controller runs.
func NewController(ctx context.Context, auth AuthSession, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		auth:   auth,
		logger: logger,
		ctx:    cctx,
		cancel: cancel,
		state:  idleState(),
		idle:   closedChan(),
		subs:   make(map[int]chan State),
		done:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)

	if auth.IsLoggedIn(cctx) {
		sess, err := auth.CurrentSession(cctx)
		switch {
		case err != nil:
			logger.WarnContext(cctx, "restoring stored session failed", slog.String("error", err.Error()))
		default:
			c.current = sess
			c.state = authenticatedState(sess)
			logger.InfoContext(cctx, "restored stored session", slog.String("user_id", sess.UserID))
			if opts.ValidateOnStartup {
				c.enqueueLocked(action{kind: actionValidate})
			}
		}
	}

	go c.run()
	return c
}

// NewControllerFromEngine starts a controller using the engine's
// configured startup validation and logger.
func NewControllerFromEngine(ctx context.Context, e *Engine) *Controller {
	return NewController(ctx, e, ControllerOptions{
		ValidateOnStartup: e.config.Controller.ValidateOnStartup,
		Logger:            e.logger.With(slog.String("component", "controller")),
	})
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentSession returns the session of the last successful login or
// restore, or nil after a logout.
func (c *Controller) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe returns a channel that receives the current state immediately
// and every later state. Delivery is conflating: a slow reader skips
// intermediate states but always sees the latest one. The channel is
// closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		ch <- c.state
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Login publishes Loading and queues a login.
func (c *Controller) Login(email, password string) error {
	return c.enqueue(action{kind: actionLogin, email: email, password: password}, true)
}

// ValidateToken queues a remote token check. A rejected token moves the
// controller to LoggedOut; success or an error leaves the state unchanged.
func (c *Controller) ValidateToken() error {
	return c.enqueue(action{kind: actionValidate}, false)
}

// Logout publishes Loading and queues a logout. The controller always ends
// LoggedOut.
func (c *Controller) Logout() error {
	return c.enqueue(action{kind: actionLogout}, true)
}

// TouchActivity queues an activity timestamp refresh.
func (c *Controller) TouchActivity() error {
	return c.enqueue(action{kind: actionTouch}, false)
}

// ResetToIdle moves to Idle immediately, typically to dismiss a failure.
// Queued actions still run and publish their own results.
func (c *Controller) ResetToIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(idleState())
}

// Wait blocks until every action queued so far has finished or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting actions, lets queued ones finish, then stops the
// worker and closes subscriber channels.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	<-c.done
	c.cancel()

	c.mu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

func (c *Controller) enqueue(a action, loading bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if loading {
		c.setStateLocked(loadingState())
	}
	c.enqueueLocked(a)
	return nil
}

func (c *Controller) enqueueLocked(a action) {
	c.queue = append(c.queue, a)
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.cond.Signal()
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		a := c.queue[0]
		c.queue[0] = action{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.execute(a)

		c.mu.Lock()
		c.inflight--
		if c.inflight == 0 {
			close(c.idle)
		}
		c.mu.Unlock()
	}
}

func (c *Controller) execute(a action) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("controller action panicked",
				slog.String("action", a.kind.String()),
				slog.String("panic", fmt.Sprint(r)))
			c.mu.Lock()
			defer c.mu.Unlock()
			switch a.kind {
			case actionLogin:
				c.setStateLocked(failedState(fmt.Sprint(r)))
			case actionLogout:
				c.current = nil
				c.setStateLocked(loggedOutState())
			}
		}
	}()

	ctx := c.ctx
	switch a.kind {
	case actionLogin:
		c.publish(loadingState(), nil, false)
		sess, err := c.auth.Login(ctx, a.email, a.password)
		if err != nil {
			c.publish(failedState(err.Error()), nil, false)
			return
		}
		c.publish(authenticatedState(sess), sess, true)

	case actionValidate:
		valid, err := c.auth.ValidateToken(ctx)
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "token validation failed", slog.String("error", err.Error()))
		case !valid:
			c.publish(loggedOutState(), nil, true)
		}

	case actionLogout:
		c.publish(loadingState(), nil, false)
		if _, err := c.auth.Logout(ctx); err != nil {
			c.logger.WarnContext(ctx, "logout reported an error", slog.String("error", err.Error()))
		}
		c.publish(loggedOutState(), nil, true)

	case actionTouch:
		if err := c.auth.TouchActivity(ctx); err != nil {
			c.logger.WarnContext(ctx, "activity touch failed", slog.String("error", err.Error()))
		}
	}
}

// publish sets the state and, when setCurrent is true, the current session.
func (c *Controller) publish(s State, current *session.Session, setCurrent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if setCurrent {
		c.current = current
	}
	c.setStateLocked(s)
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
