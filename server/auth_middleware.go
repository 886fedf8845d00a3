package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the caller's refreshed session
	ContextKeySession ContextKey = "session"
)

const msgLoginRequired = "You must be logged in to view products"

// RequireSession is middleware for API routes that need a signed-in user. The session's access
// token is refreshed on the way through; a session that can no longer be refreshed is rejected.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := s.app.Cookies().SessionID(r)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			session, err := s.app.Session(r.Context(), sessionID)
			if err != nil {
				log.Debug().Err(err).Str("session_id", sessionID).Msg("session rejected")
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// SessionFromContext returns the session stored by RequireSession
func SessionFromContext(ctx context.Context) (sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(sessions.Session)
	return session, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":   "unauthorized",
		"message": msgLoginRequired,
	})
}
