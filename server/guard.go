package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/transport"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified token claims stored by the
// token guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// requireToken rejects requests without a valid, unrevoked bearer token
// with 401.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: transport.MessageTokenInvalid})
			return
		}
		claims, err := s.signer.Parse(token)
		if err != nil {
			s.logger.DebugContext(r.Context(), "token rejected", "reason", err.Error())
			writeJSON(w, http.StatusUnauthorized, envelope{Message: transport.MessageTokenInvalid})
			return
		}
		revoked, err := s.revocations.Revoked(r.Context(), claims.ID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "revocation lookup failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "revocation store unavailable"})
			return
		}
		if revoked {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: transport.MessageTokenInvalid})
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
