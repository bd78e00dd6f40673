package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/transport"
)

const messageTooManyAttempts = "Too many attempts, try again later"

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var creds transport.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeJSON(w, http.StatusOK, transport.LoginResponse{Message: transport.MessageCredentialsRequired})
		return
	}

	ip := clientIP(r)
	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, creds.Email, ip); err != nil {
			s.writeLimiterError(w, r, err)
			return
		}
	}

	acct, ok := s.accounts.Lookup(creds.Email)
	hash := s.dummyHash
	if ok {
		hash = acct.PasswordHash
	}
	match, err := s.hasher.Verify(creds.Password, hash)
	if err != nil || !match || !ok {
		if err != nil && ok && !errors.Is(err, password.ErrTooLong) {
			s.logger.ErrorContext(ctx, "stored password hash unusable", slog.String("user_id", acct.ID))
		}
		if s.limiter != nil {
			if err := s.limiter.IncrementLogin(ctx, creds.Email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				s.logger.WarnContext(ctx, "recording failed login", slog.String("error", err.Error()))
			}
		}
		writeJSON(w, http.StatusOK, transport.LoginResponse{Message: transport.MessageCredentialsWrong})
		return
	}

	token, _, err := s.signer.Issue(jwt.Identity{UserID: acct.ID, Email: acct.Email, Name: acct.Name})
	if err != nil {
		s.logger.ErrorContext(ctx, "issuing token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "could not issue token"})
		return
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, acct.Email); err != nil {
			s.logger.WarnContext(ctx, "resetting login counter", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "login", slog.String("user_id", acct.ID))

	writeJSON(w, http.StatusOK, transport.LoginResponse{
		Success: true,
		Message: transport.MessageLoginOK,
		User: &transport.User{
			ID:    acct.ID,
			Email: acct.Email,
			Name:  acct.Name,
			Token: token,
		},
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transport.ValidateResponse{Success: true, Message: transport.MessageTokenValid})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if err := s.revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.ErrorContext(r.Context(), "revoking token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "revocation store unavailable"})
		return
	}
	s.logger.InfoContext(r.Context(), "logout", slog.String("user_id", claims.UID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLimiterError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		writeJSON(w, http.StatusTooManyRequests, envelope{Message: messageTooManyAttempts})
		return
	}
	s.logger.ErrorContext(r.Context(), "login limiter unavailable", slog.String("error", err.Error()))
	writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "service unavailable"})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
