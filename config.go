package goSession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable LoadConfig falls back to when
// no path is given.
const ConfigEnv = "GOSESSION_CONFIG"

// Config is the full library configuration. Durations in YAML are Go
// duration strings such as "24h" or "500ms".
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Transport  TransportConfig  `yaml:"transport"`
	Controller ControllerConfig `yaml:"controller"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// Session backends accepted by SessionConfig.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// SessionConfig selects where the encrypted session lives.
type SessionConfig struct {
	// Expiry is the rolling validity window. Default: 24h.
	Expiry time.Duration `yaml:"expiry"`

	// Backend is "memory", "file" or "redis". Default: file.
	Backend string `yaml:"backend"`

	// Path is the session file for the file backend.
	Path string `yaml:"path"`

	// KeyFile is the age identity used to seal entries. It is created on
	// first use.
	KeyFile string `yaml:"key_file"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// Transport modes accepted by TransportConfig.Mode.
const (
	TransportMock = "mock"
	TransportHTTP = "http"
)

// TransportConfig selects and tunes the auth transport.
type TransportConfig struct {
	// Mode is "mock" or "http". Default: mock.
	Mode string `yaml:"mode"`

	// BaseURL is the API root for http mode.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`

	// LogBodies logs redacted request and response bodies at debug level.
	LogBodies bool `yaml:"log_bodies"`

	// MockLatency enables the mock's simulated network delays.
	MockLatency bool `yaml:"mock_latency"`
}

/*
====================================
CONTROLLER, AUDIT, METRICS, LOG
====================================
*/

// ControllerConfig tunes the state machine.
type ControllerConfig struct {
	// ValidateOnStartup re-checks a restored session with the server once
	// the controller starts. Default: true.
	ValidateOnStartup bool `yaml:"validate_on_startup"`
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig controls NewLogger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	stateDir := defaultStateDir()
	return Config{
		Session: SessionConfig{
			Expiry:  24 * time.Hour,
			Backend: BackendFile,
			Path:    filepath.Join(stateDir, "session.cbor"),
			KeyFile: filepath.Join(stateDir, "identity.txt"),
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "gs",
			},
		},
		Transport: TransportConfig{
			Mode:    TransportMock,
			Timeout: 30 * time.Second,
		},
		Controller: ControllerConfig{
			ValidateOnStartup: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gosession")
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over DefaultConfig. An empty path falls
// back to $GOSESSION_CONFIG; when that is unset too the defaults are
// returned. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.Expiry <= 0 {
		return errors.New("Session Expiry must be > 0")
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Session.Path) == "" {
			return errors.New("Session Path required for file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Session.Redis.Addr) == "" {
			return errors.New("Session Redis Addr required for redis backend")
		}
		if c.Session.Redis.DB < 0 {
			return errors.New("Session Redis DB must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", c.Session.Backend)
	}
	if c.Session.Backend != BackendMemory && strings.TrimSpace(c.Session.KeyFile) == "" {
		return errors.New("Session KeyFile required for persistent backends")
	}

	// Transport
	switch c.Transport.Mode {
	case TransportMock:
	case TransportHTTP:
		if strings.TrimSpace(c.Transport.BaseURL) == "" {
			return errors.New("Transport BaseURL required for http mode")
		}
	default:
		return fmt.Errorf("unsupported transport mode %q", c.Transport.Mode)
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Log
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}
