package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-mock-oauth/client"
	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/products"
	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/rs/zerolog/log"
)

// HomePageData is rendered by the demo application's home page
type HomePageData struct {
	AppName      string
	SignedIn     bool
	User         sessions.User
	SessionError string
	Error        string
}

// HomePage renders the demo application's landing page
func (s *Server) HomePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := HomePageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
		}
		if sessionID, err := s.app.Cookies().SessionID(r); err == nil {
			if session, err := s.app.Lookup(sessionID); err == nil {
				data.SignedIn = true
				data.User = session.User
				data.SessionError = session.Error
			}
		}
		s.renderTemplate(w, templateHome, data)
	}
}

// SignIn starts the authorization code flow
func (s *Server) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.app.StartSignIn(r.URL.Query().Get("callbackUrl"))
		if err != nil {
			log.Err(err).Msg("failed to start sign-in")
			redirectWithError(w, r, signInErrorCallback)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// SignOut forgets the caller's session and clears the cookie
func (s *Server) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, err := s.app.Cookies().SessionID(r); err == nil {
			if err := s.app.SignOut(sessionID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
				log.Err(err).Msg("failed to delete session")
			}
		}
		http.SetCookie(w, s.app.Cookies().ClearCookie(s.secureCookies()))
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}

// SessionResponse is the JSON view of the caller's session
type SessionResponse struct {
	User        sessions.User `json:"user"`
	AccessToken string        `json:"accessToken"`
	Expires     string        `json:"expires"`
	Error       string        `json:"error,omitempty"`
}

// SessionHandler returns the caller's session, refreshing the access token when it has expired.
// A caller without a session gets an empty object.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		sessionID, err := s.app.Cookies().SessionID(r)
		if err != nil {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		session, err := s.app.Session(r.Context(), sessionID)
		if err != nil && !errors.Is(err, client.ErrReauthenticate) {
			if !errors.Is(err, apperrors.ErrSessionNotFound) {
				log.Err(err).Msg("failed to load session")
			}
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		writeJSON(w, http.StatusOK, SessionResponse{
			User:        session.User,
			AccessToken: session.AccessToken,
			Expires:     session.AccessTokenExpires.UTC().Format(time.RFC3339),
			Error:       session.Error,
		})
	}
}

// ProductsHandler serves the protected product catalog
func (s *Server) ProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, ok := SessionFromContext(r.Context()); ok {
			log.Debug().Str("user_id", session.User.ID).Msg("products requested")
		}
		writeJSON(w, http.StatusOK, products.List(s.nowTime()))
	}
}
