// gosession-devserver serves the reference auth API that goSession's
// HTTP transport talks to: POST /auth/login, GET /auth/validate and
// POST /auth/logout under an optional base path.
//
// Usage:
//
//	gosession-devserver [--listen addr] [--redis addr|memory] [--base-path /api]
//
// With --redis memory (the default) an in-process miniredis holds login
// throttling and token revocations, so nothing survives a restart.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/server"
)

// SecretEnv is read when --jwt-secret is not given.
const SecretEnv = "GOSESSION_JWT_SECRET"

type options struct {
	listen           string
	redisAddr        string
	redisPrefix      string
	jwtSecret        string
	tokenTTL         time.Duration
	basePath         string
	maxLoginAttempts int
	loginCooldown    time.Duration
	trustProxy       bool
	logLevel         string
	logFormat        string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	logger, err := goSession.NewLogger(os.Stderr, goSession.LogConfig{Level: opts.logLevel, Format: opts.logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "gosession-devserver: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, opts, logger, nil); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := pflag.NewFlagSet("gosession-devserver", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.listen, "listen", "127.0.0.1:8080", "address to listen on")
	fs.StringVar(&o.redisAddr, "redis", "memory", `redis address, or "memory" for an in-process server`)
	fs.StringVar(&o.redisPrefix, "redis-prefix", "gsdev", "key prefix for throttle and revocation entries")
	fs.StringVar(&o.jwtSecret, "jwt-secret", "", "HS256 signing secret (default $"+SecretEnv+", else random)")
	fs.DurationVar(&o.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued tokens")
	fs.StringVar(&o.basePath, "base-path", "/api", "prefix for every route")
	fs.IntVar(&o.maxLoginAttempts, "max-login-attempts", 5, "failed logins before an account is throttled (0 disables)")
	fs.DurationVar(&o.loginCooldown, "login-cooldown", 15*time.Minute, "how long a throttled account stays blocked")
	fs.BoolVar(&o.trustProxy, "trust-proxy", false, "take client addresses from X-Forwarded-For (only behind a trusted proxy)")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "text or json")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return options{}, errors.New("unexpected arguments")
	}
	if o.jwtSecret == "" {
		o.jwtSecret = os.Getenv(SecretEnv)
	}
	return o, nil
}

// serve runs the API until ctx ends. onListen, when set, receives the
// bound address once the listener is open.
func serve(ctx context.Context, o options, logger *slog.Logger, onListen func(addr string)) error {
	rdb, closeRedis, err := openRedis(o.redisAddr, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	secret := []byte(o.jwtSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating signing secret: %w", err)
		}
		logger.Warn("no signing secret configured, tokens will not survive a restart")
	}
	signer, err := jwt.NewManager(jwt.Config{
		TTL:           o.tokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "gosession-devserver",
	})
	if err != nil {
		return err
	}

	hasher, err := password.NewArgon2(password.LightConfig())
	if err != nil {
		return err
	}
	accounts, err := server.DefaultAccounts(hasher)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Accounts:    accounts,
		Signer:      signer,
		Hasher:      hasher,
		Revocations: server.NewRedisRevocations(rdb, o.redisPrefix, nil),
		BasePath:    o.basePath,
		Logger:      logger,

		TrustProxyHeaders: o.trustProxy,
	}
	if o.maxLoginAttempts > 0 {
		lc := rate.DefaultConfig()
		lc.MaxLoginAttempts = o.maxLoginAttempts
		lc.LoginCooldown = o.loginCooldown
		lc.Prefix = o.redisPrefix
		cfg.Limiter = rate.New(rdb, lc)
	}
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", o.listen)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("base_path", o.basePath),
		slog.Int("accounts", accounts.Len()))
	if onListen != nil {
		onListen(ln.Addr().String())
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "memory" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("starting miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		logger.Info("using in-process redis", slog.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	logger.Info("using redis", slog.String("addr", addr))
	return client, func() { _ = client.Close() }, nil
}
