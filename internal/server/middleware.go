package server

import (
	"context"
	"net/http"
	"strings"

	"oasis/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// authenticated wraps a handler with bearer token verification and stashes
// the resolved identity on the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		identity, ok := s.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

func callerIdentity(r *http.Request) auth.Identity {
	identity, _ := r.Context().Value(identityKey).(auth.Identity)
	return identity
}
