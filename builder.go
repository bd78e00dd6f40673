package goSession

import (
	"errors"
	"log/slog"

	"filippo.io/age"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// Builder assembles an Engine. Anything not supplied explicitly is derived
// from the Config: the backend from Session, the transport from Transport.
type Builder struct {
	config Config

	backend   session.Backend
	identity  *age.X25519Identity
	transport transport.Transport
	logger    *slog.Logger
	clock     clock.Clock
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend supplies the session backend. The engine does not close a
// backend it was given.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithIdentity supplies the age identity that seals stored entries.
func (b *Builder) WithIdentity(identity *age.X25519Identity) *Builder {
	b.identity = identity
	return b
}

func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the wall clock used for expiry and latency.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}

	engine := &Engine{
		config:  cfg,
		logger:  logger,
		clock:   clk,
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- BACKEND --------
	backend := b.backend
	if backend == nil {
		var err error
		backend, err = openBackend(cfg.Session)
		if err != nil {
			return nil, err
		}
		engine.ownsBackend = true
	}
	engine.backend = backend

	// -------- IDENTITY --------
	identity := b.identity
	if identity == nil {
		var err error
		identity, err = openIdentity(cfg.Session)
		if err != nil {
			engine.closeOwnedBackend()
			return nil, err
		}
	}

	// -------- SESSION STORE --------
	store, err := session.NewStore(backend, identity, session.Options{
		Clock:  clk,
		Expiry: cfg.Session.Expiry,
		OnExpire: func() {
			engine.metricInc(MetricSessionExpired)
			engine.metricInc(MetricSessionCleared)
			logger.Info("stored session expired and was cleared")
		},
	})
	if err != nil {
		engine.closeOwnedBackend()
		return nil, err
	}
	engine.store = store

	// -------- TRANSPORT --------
	tr := b.transport
	if tr == nil {
		tr, err = openTransport(cfg.Transport, logger, clk)
		if err != nil {
			engine.closeOwnedBackend()
			return nil, err
		}
	}
	engine.transport = tr

	engine.flows = flows.Deps{
		Login: flows.LoginDeps{
			Transport:    tr,
			SessionStore: store,
			ValidEmail:   ValidEmail,
		},
		Validate: flows.ValidateDeps{
			Transport:    tr,
			SessionStore: store,
		},
		Logout: flows.LogoutDeps{
			Transport:    tr,
			SessionStore: store,
		},
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, clk)

	b.built = true

	return engine, nil
}

func (e *Engine) closeOwnedBackend() {
	if e.ownsBackend && e.backend != nil {
		_ = e.backend.Close()
	}
}
