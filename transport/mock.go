package transport

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/clock"
)

// Mock messages, kept identical to what the demo backend answers.
const (
	MessageCredentialsRequired = "Email and password are required"
	MessageCredentialsWrong    = "Credentials incorrect"
	MessageLoginOK             = "Login successful"
	MessageTokenValid          = "Token valid"
	MessageTokenInvalid        = "Token invalid"
)

// DemoPassword is the shared secret of every demo account.
const DemoPassword = "123456"

const (
	mockTokenHeader  = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"
	mockTokenTrailer = "mock_signature"
)

// Account is a fixed identity known to the Mock.
type Account struct {
	ID       string
	Email    string
	Name     string
	Password string
}

// DemoAccounts returns the three reference accounts.
func DemoAccounts() []Account {
	return []Account{
		{ID: "1", Email: "alumno@utng.edu.mx", Name: "Estudiante Demo", Password: DemoPassword},
		{ID: "2", Email: "profesor@utng.edu.mx", Name: "Profesor Demo", Password: DemoPassword},
		{ID: "3", Email: "admin@utng.edu.mx", Name: "Administrador Demo", Password: DemoPassword},
	}
}

// Latency describes simulated response delays. Login waits a uniformly
// random duration in [LoginMin, LoginMax].
type Latency struct {
	LoginMin time.Duration
	LoginMax time.Duration
	Validate time.Duration
	Logout   time.Duration
}

// DefaultLatency mirrors a slow mobile network.
func DefaultLatency() Latency {
	return Latency{
		LoginMin: time.Second,
		LoginMax: 2 * time.Second,
		Validate: 500 * time.Millisecond,
		Logout:   300 * time.Millisecond,
	}
}

// MockOptions configures a Mock. The zero value responds immediately with
// the demo accounts.
type MockOptions struct {
	Accounts []Account
	Latency  Latency
	Clock    clock.Clock
}

// MockCalls counts calls per operation.
type MockCalls struct {
	Login    uint64
	Validate uint64
	Logout   uint64
}

// Mock is a deterministic in-process Transport.
type Mock struct {
	accounts map[string]Account
	latency  Latency
	clock    clock.Clock

	mu           sync.Mutex
	failLogin    error
	failValidate error
	failLogout   error
	rejectTokens bool

	loginCalls    atomic.Uint64
	validateCalls atomic.Uint64
	logoutCalls   atomic.Uint64
}

// NewMock returns a Mock configured by opts.
func NewMock(opts MockOptions) *Mock {
	if opts.Accounts == nil {
		opts.Accounts = DemoAccounts()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	m := &Mock{
		accounts: make(map[string]Account, len(opts.Accounts)),
		latency:  opts.Latency,
		clock:    opts.Clock,
	}
	for _, a := range opts.Accounts {
		m.accounts[a.Email] = a
	}
	return m
}

// FailLogin makes every subsequent Login return err. nil restores normal
// behavior. The same applies to FailValidate and FailLogout.
func (m *Mock) FailLogin(err error) {
	m.mu.Lock()
	m.failLogin = err
	m.mu.Unlock()
}

func (m *Mock) FailValidate(err error) {
	m.mu.Lock()
	m.failValidate = err
	m.mu.Unlock()
}

func (m *Mock) FailLogout(err error) {
	m.mu.Lock()
	m.failLogout = err
	m.mu.Unlock()
}

// RejectTokens makes Validate answer Success=false for every token.
func (m *Mock) RejectTokens(reject bool) {
	m.mu.Lock()
	m.rejectTokens = reject
	m.mu.Unlock()
}

// Calls returns the number of calls made so far.
func (m *Mock) Calls() MockCalls {
	return MockCalls{
		Login:    m.loginCalls.Load(),
		Validate: m.validateCalls.Load(),
		Logout:   m.logoutCalls.Load(),
	}
}

func (m *Mock) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	m.loginCalls.Add(1)
	if err := m.sleep(ctx, m.loginDelay()); err != nil {
		return nil, err
	}
	m.mu.Lock()
	fail := m.failLogin
	m.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return &LoginResponse{Success: false, Message: MessageCredentialsRequired}, nil
	}
	acct, ok := m.accounts[creds.Email]
	if !ok || acct.Password != creds.Password {
		return &LoginResponse{Success: false, Message: MessageCredentialsWrong}, nil
	}
	return &LoginResponse{
		Success: true,
		Message: MessageLoginOK,
		User: &User{
			ID:    acct.ID,
			Email: acct.Email,
			Name:  acct.Name,
			Token: NewMockToken(),
		},
	}, nil
}

func (m *Mock) Validate(ctx context.Context, token string) (*ValidateResponse, error) {
	m.validateCalls.Add(1)
	if err := m.sleep(ctx, m.latency.Validate); err != nil {
		return nil, err
	}
	m.mu.Lock()
	fail, reject := m.failValidate, m.rejectTokens
	m.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	if reject || token == "" {
		return &ValidateResponse{Success: false, Message: MessageTokenInvalid}, nil
	}
	return &ValidateResponse{Success: true, Message: MessageTokenValid}, nil
}

func (m *Mock) Logout(ctx context.Context, token string) error {
	m.logoutCalls.Add(1)
	if err := m.sleep(ctx, m.latency.Logout); err != nil {
		return err
	}
	m.mu.Lock()
	fail := m.failLogout
	m.mu.Unlock()
	return fail
}

func (m *Mock) loginDelay() time.Duration {
	lo, hi := m.latency.LoginMin, m.latency.LoginMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func (m *Mock) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-m.clock.After(d):
		return nil
	case <-ctx.Done():
		return errors.Join(ErrCanceled, ctx.Err())
	}
}

// NewMockToken returns a token shaped like the demo backend's: a fixed
// header segment, a random payload and a fixed trailer.
func NewMockToken() string {
	payload := strings.ReplaceAll(uuid.NewString(), "-", "")
	return mockTokenHeader + "." + payload + "." + mockTokenTrailer
}
