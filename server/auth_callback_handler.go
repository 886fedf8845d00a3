package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Error values reported to the home page after a failed sign-in
const (
	signInErrorCallback     = "OAuthCallback"
	signInErrorAccessDenied = "AccessDenied"
)

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errorParam := query.Get("error"); errorParam != "" {
			log.Info().Str("error", errorParam).Msg("provider returned an authorization error")
			redirectWithError(w, r, signInErrorAccessDenied)
			return
		}

		state := query.Get("state")
		code := query.Get("code")
		if state == "" || code == "" {
			redirectWithError(w, r, signInErrorCallback)
			return
		}

		session, returnURL, err := s.app.CompleteSignIn(r.Context(), state, code)
		if err != nil {
			log.Err(err).Msg("sign-in callback failed")
			redirectWithError(w, r, signInErrorCallback)
			return
		}

		value, err := s.app.Cookies().Encode(session.ID)
		if err != nil {
			log.Err(err).Msg("failed to encode session cookie")
			redirectWithError(w, r, signInErrorCallback)
			return
		}
		http.SetCookie(w, s.app.Cookies().Cookie(value, s.secureCookies()))

		log.Info().Str("user_id", session.User.ID).Msg("user signed in")
		http.Redirect(w, r, returnURL, http.StatusSeeOther)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, signInError string) {
	http.Redirect(w, r, RouteHome+"?error="+url.QueryEscape(signInError), http.StatusSeeOther)
}
