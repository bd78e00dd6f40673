package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/clock"
)

func newRedisBackendTest(t *testing.T) (*RedisBackend, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBackend(rdb, "gs-test"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisBackendSaveLoadClear(t *testing.T) {
	backend, mr, done := newRedisBackendTest(t)
	defer done()
	ctx := context.Background()

	identity, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	store, err := NewStore(backend, identity, Options{Clock: clock.Fake(testEpoch)})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 6 {
		t.Fatalf("expected 6 redis keys after save, got %v", keys)
	}
	token, err := store.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != testSession().Token {
		t.Fatalf("unexpected token %q", token)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected only the logged-in flag key, got %v", keys)
	}
	if _, err := store.Token(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	backend, mr, done := newRedisBackendTest(t)
	defer done()
	mr.Close()

	if _, err := backend.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := backend.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from ping, got %v", err)
	}
}
