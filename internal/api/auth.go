// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/reqwatch/reqwatch/internal/log"
)

// extractToken reads the API token from the request. Authorization
// Bearer takes precedence over the X-API-Token header; tokens are never
// accepted from the URL.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		return ""
	}
	return r.Header.Get("X-API-Token")
}

// authorizeToken compares tokens in constant time.
func authorizeToken(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// authMiddleware enforces API token authentication. With no token
// configured the API fails closed unless anonymous access was enabled
// explicitly.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		token := s.cfg.API.Token
		allowAnon := s.cfg.API.AllowAnonymous
		s.mu.RUnlock()

		if token == "" {
			if allowAnon {
				next.ServeHTTP(w, r)
				return
			}
			log.FromContext(r.Context()).Error().
				Str("event", "auth.fail_closed").
				Msg("no API token configured and anonymous access not enabled, denying")
			writeUnauthorized(w)
			return
		}

		logger := log.WithComponentFromContext(r.Context(), "auth")

		reqToken := extractToken(r)
		if reqToken == "" {
			logger.Warn().
				Str("event", "auth.missing_token").
				Msg("authorization header missing")
			writeUnauthorized(w)
			return
		}

		if !authorizeToken(reqToken, token) {
			logger.Warn().
				Str("event", "auth.invalid_token").
				Msg("invalid api token")
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
