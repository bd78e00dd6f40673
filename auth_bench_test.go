package goSession

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

func newBenchmarkEngine(b *testing.B, backend session.Backend) *Engine {
	b.Helper()

	identity, err := session.GenerateIdentity()
	if err != nil {
		b.Fatalf("identity: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Session.Backend = BackendMemory

	engine, err := New().
		WithConfig(cfg).
		WithBackend(backend).
		WithIdentity(identity).
		WithTransport(transport.NewMock(transport.MockOptions{})).
		Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.Cleanup(func() { _ = engine.Close() })

	if _, err := engine.Login(context.Background(), "alumno@utng.edu.mx", transport.DemoPassword); err != nil {
		b.Fatalf("login failed: %v", err)
	}
	return engine
}

func BenchmarkIsLoggedInMemory(b *testing.B) {
	engine := newBenchmarkEngine(b, session.NewMemoryBackend())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !engine.IsLoggedIn(ctx) {
			b.Fatal("expected logged in")
		}
	}
}

func BenchmarkIsLoggedInRedis(b *testing.B) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis: %v", err)
	}
	b.Cleanup(mr.Close)
	backend := session.DialRedisBackend(mr.Addr(), "", 0, "bench")
	b.Cleanup(func() { _ = backend.Close() })
	engine := newBenchmarkEngine(b, backend)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !engine.IsLoggedIn(ctx) {
			b.Fatal("expected logged in")
		}
	}
}

func BenchmarkValidateToken(b *testing.B) {
	engine := newBenchmarkEngine(b, session.NewMemoryBackend())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := engine.ValidateToken(ctx); err != nil || !ok {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkLoginLogout(b *testing.B) {
	engine := newBenchmarkEngine(b, session.NewMemoryBackend())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Login(ctx, "profesor@utng.edu.mx", transport.DemoPassword); err != nil {
			b.Fatalf("login failed: %v", err)
		}
		if _, err := engine.Logout(ctx); err != nil {
			b.Fatalf("logout failed: %v", err)
		}
	}
}
