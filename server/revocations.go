package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/clock"
)

// ErrRevocationsUnavailable wraps revocation store failures.
var ErrRevocationsUnavailable = errors.New("revocation store unavailable")

// Revocations remembers token ids that were logged out. An entry only
// needs to outlive the token it names.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocations is a process-local Revocations.
type MemoryRevocations struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryRevocations returns an empty set. A nil clock means the wall
// clock.
func NewMemoryRevocations(c clock.Clock) *MemoryRevocations {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryRevocations{clock: c, entries: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if until.After(now) {
		m.entries[jti] = until
	}
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[jti]
	return ok && exp.After(m.clock.Now()), nil
}

// Len reports live and not yet pruned entries.
func (m *MemoryRevocations) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisRevocations stores one key per revoked token with the remaining
// token lifetime as TTL.
type RedisRevocations struct {
	redis  redis.UniversalClient
	prefix string
	clock  clock.Clock
}

func NewRedisRevocations(client redis.UniversalClient, prefix string, c clock.Clock) *RedisRevocations {
	if prefix == "" {
		prefix = "gs"
	}
	if c == nil {
		c = clock.Real()
	}
	return &RedisRevocations{redis: client, prefix: prefix, clock: c}
}

func (r *RedisRevocations) key(jti string) string {
	return r.prefix + ":revoked:" + jti
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, r.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationsUnavailable, err)
	}
	return nil
}

func (r *RedisRevocations) Revoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevocationsUnavailable, err)
	}
	return n > 0, nil
}
