package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/jrsteele09/go-mock-oauth/auth"
	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/jrsteele09/go-mock-oauth/users"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeForm = "application/x-www-form-urlencoded"

	maxTokenRequestBytes = 64 << 10

	actionStoreCode = "store_code"
)

// ConsentPageData is rendered by the consent screen
type ConsentPageData struct {
	AppName     string
	ClientID    string
	RedirectURI string
	State       string
	Scope       string
	User        *users.User

	// Approve and Deny are the values the two consent buttons post as "decision".
	Approve string
	Deny    string
}

// ConsentPage renders the mock provider's approve/deny screen
func (s *Server) ConsentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		data := ConsentPageData{
			AppName:     s.config.GetAppName(),
			ClientID:    query.Get("client_id"),
			RedirectURI: query.Get("redirect_uri"),
			State:       query.Get("state"),
			Scope:       query.Get("scope"),
			User:        users.DemoUser(),
			Approve:     oauthmodel.DecisionApprove,
			Deny:        oauthmodel.DecisionDeny,
		}
		if data.ClientID == "" {
			data.ClientID = s.config.GetClientID()
		}
		s.renderTemplate(w, templateConsent, data)
	}
}

// AuthorizeDecision applies the consent decision posted from the consent screen
func (s *Server) AuthorizeDecision() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeOAuthError(w, oauthmodel.InvalidRequest("Failed to parse form data"))
			return
		}
		params := &oauthmodel.AuthorizationParameters{
			ClientID:     r.PostFormValue("client_id"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			State:        r.PostFormValue("state"),
			ResponseType: oauthmodel.ResponseType(r.PostFormValue("response_type")),
			Scope:        r.PostFormValue("scope"),
			Decision:     r.PostFormValue("decision"),
		}
		if !params.Approved() {
			http.Redirect(w, r, RouteHome, http.StatusSeeOther)
			return
		}

		callbackURL, err := s.auth.Authorize(r.Context(), params)
		if err != nil {
			writeOAuthError(w, oauthmodel.AsError(err))
			return
		}
		http.Redirect(w, r, callbackURL, http.StatusSeeOther)
	}
}

// Token is the token endpoint; it accepts JSON and form encoded bodies
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")

		req, err := decodeTokenRequest(w, r)
		var oauthErr *oauthmodel.Error
		if errors.As(err, &oauthErr) {
			log.Debug().Str("error", string(oauthErr.Code)).Msg("token request rejected while decoding")
			writeOAuthError(w, oauthErr)
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("malformed token request")
			writeOAuthError(w, oauthmodel.InvalidRequest("Malformed request body"))
			return
		}

		resp, err := s.auth.Token(r.Context(), req)
		if err != nil {
			writeOAuthError(w, oauthmodel.AsError(err))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// TokenAction serves the GET side of the token endpoint, which only knows how to register a code
func (s *Server) TokenAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("action") != actionStoreCode {
			writeOAuthError(w, oauthmodel.InvalidRequest("Unsupported action"))
			return
		}
		if err := s.auth.RegisterCode(r.Context(), query.Get("code")); err != nil {
			writeOAuthError(w, oauthmodel.AsError(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// UserInfo returns the profile bound to the presented bearer token
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, err := auth.ParseBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeOAuthError(w, oauthmodel.AsError(err))
			return
		}

		userInfo, err := s.auth.UserInfo(r.Context(), accessToken)
		if err != nil {
			writeOAuthError(w, oauthmodel.AsError(err))
			return
		}
		writeJSON(w, http.StatusOK, userInfo)
	}
}

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetBaseURL()
		resp := oauthmodel.DiscoveryDocument{
			Issuer:                   baseURL,
			AuthorizationEndpoint:    baseURL + RouteAuthorize,
			TokenEndpoint:            baseURL + RouteToken,
			UserInfoEndpoint:         baseURL + RouteUserInfo,
			ResponseTypesSupported:   []string{string(oauthmodel.CodeResponseType)},
			GrantTypesSupported:      []string{string(oauthmodel.AuthorizationCodeGrant), string(oauthmodel.RefreshTokenGrant)},
			ScopesSupported:          s.auth.ScopesSupported(),
			TokenEndpointAuthMethods: []string{"client_secret_post"},
			SubjectTypesSupported:    []string{"public"},
			ClaimsSupported:          []string{"sub", "name", "email", "picture", "email_verified", "updated_at"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// Preflight answers CORS preflight requests for the API routes; CorsMiddleware writes the headers.
func (s *Server) Preflight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (*oauthmodel.TokenRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTokenRequestBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeForm {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return &oauthmodel.TokenRequest{
			GrantType:    oauthmodel.GrantType(r.PostForm.Get("grant_type")),
			Code:         r.PostForm.Get("code"),
			RefreshToken: r.PostForm.Get("refresh_token"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
		}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("token request body must be a JSON object")
	}

	// The grant is resolved first so a badly typed field fails only the grant it belongs to.
	grantType, ok := jsonString(fields, "grant_type")
	if !ok {
		return nil, oauthmodel.UnsupportedGrantType()
	}
	req := &oauthmodel.TokenRequest{GrantType: oauthmodel.GrantType(grantType)}
	switch req.GrantType {
	case oauthmodel.AuthorizationCodeGrant:
		if req.Code, ok = jsonString(fields, "code"); !ok {
			return nil, oauthmodel.InvalidGrant("Authorization code must be a string", nil)
		}
		req.RedirectURI, _ = jsonString(fields, "redirect_uri")
	case oauthmodel.RefreshTokenGrant:
		if req.RefreshToken, ok = jsonString(fields, "refresh_token"); !ok {
			return nil, oauthmodel.InvalidGrant("Refresh token must be a string", nil)
		}
	}
	req.ClientID, _ = jsonString(fields, "client_id")
	req.ClientSecret, _ = jsonString(fields, "client_secret")
	return req, nil
}

// jsonString reads a string member. Missing and null members read as empty; ok is false
// only when the member holds some other JSON type.
func jsonString(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, found := fields[name]
	if !found {
		return "", true
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return *v, true
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

func writeOAuthError(w http.ResponseWriter, err *oauthmodel.Error) {
	if err.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+string(err.Code)+`"`)
	}
	writeJSONError(w, string(err.Code), err.Description, err.Status)
}
