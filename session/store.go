package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filippo.io/age"

	"github.com/MrEthical07/goSession/clock"
)

// DefaultExpiry is the session window measured from the last Save or Touch.
const DefaultExpiry = 24 * time.Hour

// Options tunes a Store. The zero value is usable.
type Options struct {
	// Clock supplies the current time. Defaults to clock.Real().
	Clock clock.Clock

	// Expiry is the validity window. Defaults to DefaultExpiry.
	Expiry time.Duration

	// OnExpire is called after a read cleared a logged-in session because
	// its window had elapsed.
	OnExpire func()
}

// Store is the encrypted session store. A Store is safe for concurrent
// use when its Backend is, but it assumes a single writer: concurrent
// Save and Clear calls race at the entry level.
type Store struct {
	backend  Backend
	sealer   *sealer
	clock    clock.Clock
	expiry   time.Duration
	onExpire func()
}

// NewStore returns a Store persisting through backend and sealing values
// for identity.
func NewStore(backend Backend, identity *age.X25519Identity, opts Options) (*Store, error) {
	if backend == nil {
		return nil, errors.New("session backend required")
	}
	s, err := newSealer(identity)
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	return &Store{
		backend:  backend,
		sealer:   s,
		clock:    opts.Clock,
		expiry:   opts.Expiry,
		onExpire: opts.OnExpire,
	}, nil
}

// Expiry returns the configured validity window.
func (s *Store) Expiry() time.Duration { return s.expiry }

// Save writes the identity fields, the logged-in flag and a fresh
// timestamp as one batch. sess.IssuedAt is updated to the stored value.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if !sess.Complete() {
		return ErrIncompleteSession
	}
	now := clock.NowMillis(s.clock)

	values := map[string]any{
		fieldToken:       sess.Token,
		fieldUserID:      sess.UserID,
		fieldEmail:       sess.Email,
		fieldDisplayName: sess.DisplayName,
		fieldLoggedIn:    true,
		fieldTimestamp:   now,
	}
	batch := Batch{Set: make(map[string][]byte, len(values))}
	for field, v := range values {
		sealed, err := s.sealer.seal(v)
		if err != nil {
			return err
		}
		batch.Set[s.sealer.keyName(field)] = sealed
	}
	if err := s.backend.Apply(ctx, batch); err != nil {
		return err
	}
	sess.IssuedAt = now
	return nil
}

// Token returns the stored token, or ErrNoSession when there is none or
// the session expired. An expired session is cleared as a side effect.
func (s *Store) Token(ctx context.Context) (string, error) {
	if err := s.expireOnRead(ctx); err != nil {
		return "", err
	}
	token, ok, err := s.readString(ctx, fieldToken)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Load returns the stored session under the same expire-on-read policy as
// Token. A partial record yields ErrNoSession.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	if err := s.expireOnRead(ctx); err != nil {
		return nil, err
	}

	sess := &Session{}
	targets := map[string]*string{
		fieldToken:       &sess.Token,
		fieldUserID:      &sess.UserID,
		fieldEmail:       &sess.Email,
		fieldDisplayName: &sess.DisplayName,
	}
	for _, field := range identityFields {
		v, ok, err := s.readString(ctx, field)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoSession
		}
		*targets[field] = v
	}
	ts, _, err := s.readInt64(ctx, fieldTimestamp)
	if err != nil {
		return nil, err
	}
	sess.IssuedAt = ts
	if !sess.Complete() {
		return nil, ErrNoSession
	}
	return sess, nil
}

// LoggedIn reports the stored logged-in flag combined with the expiry
// check. It never writes.
func (s *Store) LoggedIn(ctx context.Context) (bool, error) {
	flag, _, err := s.readBool(ctx, fieldLoggedIn)
	if err != nil || !flag {
		return false, err
	}
	return s.IsValid(ctx)
}

// IsValid reports whether the stored timestamp is inside the expiry
// window. A missing timestamp counts as epoch zero.
func (s *Store) IsValid(ctx context.Context) (bool, error) {
	ts, _, err := s.readInt64(ctx, fieldTimestamp)
	if err != nil {
		return false, err
	}
	elapsed := clock.NowMillis(s.clock) - ts
	return elapsed < s.expiry.Milliseconds(), nil
}

// Status is a point-in-time view of the stored session.
type Status struct {
	LoggedIn   bool
	LastActive time.Time
	ExpiresAt  time.Time
	CheckedAt  time.Time
}

// Age is the time since the last Save or Touch, zero when logged out.
func (st Status) Age() time.Duration {
	if !st.LoggedIn {
		return 0
	}
	return st.CheckedAt.Sub(st.LastActive)
}

// Remaining is the time left in the window, zero when logged out.
func (st Status) Remaining() time.Duration {
	if !st.LoggedIn {
		return 0
	}
	return st.ExpiresAt.Sub(st.CheckedAt)
}

// Status reports the session window without touching or expiring it.
func (s *Store) Status(ctx context.Context) (Status, error) {
	now := clock.NowMillis(s.clock)
	st := Status{CheckedAt: time.UnixMilli(now)}

	flag, _, err := s.readBool(ctx, fieldLoggedIn)
	if err != nil || !flag {
		return st, err
	}
	ts, ok, err := s.readInt64(ctx, fieldTimestamp)
	if err != nil || !ok {
		return st, err
	}
	expires := ts + s.expiry.Milliseconds()
	if now >= expires {
		return st, nil
	}
	st.LoggedIn = true
	st.LastActive = time.UnixMilli(ts)
	st.ExpiresAt = time.UnixMilli(expires)
	return st, nil
}

// Touch moves the timestamp to now. It writes nothing once the session
// has been cleared, and an elapsed session is expired rather than renewed.
func (s *Store) Touch(ctx context.Context) error {
	flag, _, err := s.readBool(ctx, fieldLoggedIn)
	if err != nil || !flag {
		return err
	}
	if err := s.expireOnRead(ctx); err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}
	sealed, err := s.sealer.seal(clock.NowMillis(s.clock))
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, Batch{
		Set: map[string][]byte{s.sealer.keyName(fieldTimestamp): sealed},
	})
}

// Clear removes the identity fields and timestamp and sets the logged-in
// flag to false. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	sealed, err := s.sealer.seal(false)
	if err != nil {
		return err
	}
	batch := Batch{
		Set: map[string][]byte{s.sealer.keyName(fieldLoggedIn): sealed},
		Delete: []string{
			s.sealer.keyName(fieldToken),
			s.sealer.keyName(fieldUserID),
			s.sealer.keyName(fieldEmail),
			s.sealer.keyName(fieldDisplayName),
			s.sealer.keyName(fieldTimestamp),
		},
	}
	return s.backend.Apply(ctx, batch)
}

// expireOnRead clears the store when the window has elapsed and reports
// ErrNoSession in that case.
func (s *Store) expireOnRead(ctx context.Context) error {
	valid, err := s.IsValid(ctx)
	if err != nil {
		return err
	}
	if valid {
		return nil
	}
	wasLoggedIn, _, err := s.readBool(ctx, fieldLoggedIn)
	if err != nil {
		return err
	}
	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("clearing expired session: %w", err)
	}
	if wasLoggedIn && s.onExpire != nil {
		s.onExpire()
	}
	return ErrNoSession
}

func (s *Store) read(ctx context.Context, field string, target any) (bool, error) {
	data, err := s.backend.Get(ctx, s.sealer.keyName(field))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.sealer.open(data, target); err != nil {
		return false, fmt.Errorf("%s: %w", field, err)
	}
	return true, nil
}

func (s *Store) readString(ctx context.Context, field string) (string, bool, error) {
	var v string
	ok, err := s.read(ctx, field, &v)
	return v, ok, err
}

func (s *Store) readBool(ctx context.Context, field string) (bool, bool, error) {
	var v bool
	ok, err := s.read(ctx, field, &v)
	return v, ok, err
}

func (s *Store) readInt64(ctx context.Context, field string) (int64, bool, error) {
	var v int64
	ok, err := s.read(ctx, field, &v)
	return v, ok, err
}
