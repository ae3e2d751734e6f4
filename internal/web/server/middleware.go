package server

import (
	"net/http"
	"strings"

	"github.com/redline-cms/redline/internal/cms/caps"
)

// authenticate validates the bearer token and attaches the user's roles to
// the request context for capability checks downstream.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, roles, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(caps.WithRoles(r.Context(), roles)))
	})
}
