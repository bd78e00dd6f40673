package goSession

import (
	"fmt"
	"log/slog"

	"filippo.io/age"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// Open builds an Engine entirely from cfg.
func Open(cfg Config, logger *slog.Logger) (*Engine, error) {
	return New().WithConfig(cfg).WithLogger(logger).Build()
}

func openBackend(cfg SessionConfig) (session.Backend, error) {
	switch cfg.Backend {
	case BackendMemory:
		return session.NewMemoryBackend(), nil
	case BackendFile:
		b, err := session.NewFileBackend(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return b, nil
	case BackendRedis:
		return session.DialRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

// openIdentity loads the key file for persistent backends. The memory
// backend gets a fresh identity since its contents die with the process.
func openIdentity(cfg SessionConfig) (*age.X25519Identity, error) {
	if cfg.Backend == BackendMemory {
		return session.GenerateIdentity()
	}
	identity, err := session.LoadOrCreateIdentity(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return identity, nil
}

func openTransport(cfg TransportConfig, logger *slog.Logger, clk clock.Clock) (transport.Transport, error) {
	switch cfg.Mode {
	case TransportMock:
		opts := transport.MockOptions{Clock: clk}
		if cfg.MockLatency {
			opts.Latency = transport.DefaultLatency()
		}
		return transport.NewMock(opts), nil
	case TransportHTTP:
		return transport.NewHTTPClient(transport.HTTPOptions{
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			LogBodies: cfg.LogBodies,
			Logger:    logger.With(slog.String("component", "transport")),
		})
	default:
		return nil, fmt.Errorf("unsupported transport mode %q", cfg.Mode)
	}
}
