package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
)

const maxRequestBody = 64 << 10

// Config wires a Server. Accounts, Signer and Hasher are required.
type Config struct {
	Accounts    *Directory
	Signer      *jwt.Manager
	Hasher      *password.Argon2
	Revocations Revocations

	// Limiter throttles failed logins when set.
	Limiter *rate.Limiter

	// BasePath prefixes every route, e.g. "/api". Default: none.
	BasePath string

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them;
	// otherwise clients choose the address the throttle counts against.
	TrustProxyHeaders bool

	Logger *slog.Logger
}

// Server is the reference auth API. It implements http.Handler.
type Server struct {
	accounts    *Directory
	signer      *jwt.Manager
	hasher      *password.Argon2
	revocations Revocations
	limiter     *rate.Limiter
	logger      *slog.Logger

	// dummyHash is verified for unknown accounts so they cost the same
	// as a wrong password.
	dummyHash string
	router    chi.Router
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Accounts == nil {
		return nil, errors.New("server: accounts required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("server: signer required")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("server: hasher required")
	}
	if cfg.Revocations == nil {
		cfg.Revocations = NewMemoryRevocations(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	dummy, err := cfg.Hasher.Hash("dummy-password-never-matches")
	if err != nil {
		return nil, err
	}

	s := &Server{
		accounts:    cfg.Accounts,
		signer:      cfg.Signer,
		hasher:      cfg.Hasher,
		revocations: cfg.Revocations,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
		dummyHash:   dummy,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "not found"})
	})

	routes := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.With(s.requireToken).Get("/validate", s.handleValidate)
			r.With(s.requireToken).Post("/logout", s.handleLogout)
		})
	}
	if base := strings.Trim(cfg.BasePath, "/"); base != "" {
		r.Route("/"+base, routes)
	} else {
		routes(r)
	}
	s.router = r

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
		)
	})
}
