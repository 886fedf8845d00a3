package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/jrsteele09/go-mock-oauth/server"
	"github.com/stretchr/testify/require"
)

type tokenBody struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (f *testFixture) postTokenJSON(t *testing.T, body map[string]string) (*http.Response, tokenBody) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := f.ts.Client().Post(f.ts.URL+server.RouteToken, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var tok tokenBody
	decodeJSON(t, resp, &tok)
	return resp, tok
}

func (f *testFixture) storeCode(t *testing.T, code string) *http.Response {
	t.Helper()
	resp, err := f.ts.Client().Get(f.ts.URL + server.RouteToken + "?action=store_code&code=" + url.QueryEscape(code))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestTokenEndpoint(t *testing.T) {
	t.Run("Registered code is exchanged exactly once", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.storeCode(t, "demo-code")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `{"success":true}`, readBody(t, resp))

		resp, tok := f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "demo-code"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.True(t, strings.HasPrefix(tok.AccessToken, "access_token_"))
		require.True(t, strings.HasPrefix(tok.RefreshToken, "refresh_token_"))
		require.Equal(t, "Bearer", tok.TokenType)
		require.Equal(t, 3600, tok.ExpiresIn)
		require.Equal(t, "openid", tok.Scope)

		resp, tok = f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "demo-code"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_grant", tok.Error)
	})

	t.Run("Form encoded refresh rotates the pair", func(t *testing.T) {
		f := setupTestFixture(t)
		f.storeCode(t, "demo-code")
		_, first := f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "demo-code"})

		resp, err := f.ts.Client().PostForm(f.ts.URL+server.RouteToken, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {first.RefreshToken},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var second tokenBody
		decodeJSON(t, resp, &second)
		require.NotEqual(t, first.AccessToken, second.AccessToken)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)

		resp2, replay := f.postTokenJSON(t, map[string]string{"grant_type": "refresh_token", "refresh_token": first.RefreshToken})
		require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
		require.Equal(t, "invalid_grant", replay.Error)
	})

	t.Run("Error responses", func(t *testing.T) {
		f := setupTestFixture(t)

		tests := []struct {
			name string
			body map[string]string
			want string
		}{
			{"unknown grant", map[string]string{"grant_type": "password", "code": "x"}, "unsupported_grant_type"},
			{"missing grant", map[string]string{}, "unsupported_grant_type"},
			{"missing code", map[string]string{"grant_type": "authorization_code"}, "invalid_request"},
			{"missing refresh token", map[string]string{"grant_type": "refresh_token"}, "invalid_request"},
			{"unknown code", map[string]string{"grant_type": "authorization_code", "code": "nope"}, "invalid_grant"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				resp, tok := f.postTokenJSON(t, tc.body)
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.Equal(t, tc.want, tok.Error)
				require.NotEmpty(t, tok.ErrorDescription)
			})
		}
	})

	t.Run("Malformed JSON is an invalid request", func(t *testing.T) {
		f := setupTestFixture(t)

		resp, err := f.ts.Client().Post(f.ts.URL+server.RouteToken, "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body tokenBody
		decodeJSON(t, resp, &body)
		require.Equal(t, "invalid_request", body.Error)
	})

	t.Run("Badly typed JSON fields fail the grant they belong to", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Equal(t, http.StatusOK, f.storeCode(t, "42").StatusCode)

		tests := []struct {
			name string
			body string
			want string
		}{
			{"unknown grant with numeric code", `{"grant_type":"password","code":123}`, "unsupported_grant_type"},
			{"unknown grant with nested fields", `{"grant_type":"password","scope":["a"],"refresh_token":{"x":1}}`, "unsupported_grant_type"},
			{"numeric code is an invalid grant even when its digits are stored", `{"grant_type":"authorization_code","code":42}`, "invalid_grant"},
			{"numeric grant type", `{"grant_type":7}`, "unsupported_grant_type"},
			{"numeric refresh token", `{"grant_type":"refresh_token","refresh_token":1}`, "invalid_grant"},
			{"null code is missing", `{"grant_type":"authorization_code","code":null}`, "invalid_request"},
			{"array body", `[]`, "invalid_request"},
			{"null body", `null`, "invalid_request"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				resp, err := f.ts.Client().Post(f.ts.URL+server.RouteToken, "application/json", strings.NewReader(tc.body))
				require.NoError(t, err)
				defer resp.Body.Close()
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				var body tokenBody
				decodeJSON(t, resp, &body)
				require.Equal(t, tc.want, body.Error)
			})
		}

		// The string form of the same code is still redeemable.
		resp, tok := f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "42"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, tok.AccessToken)
	})

	t.Run("Code registration rejects duplicates, blanks and unknown actions", func(t *testing.T) {
		f := setupTestFixture(t)

		require.Equal(t, http.StatusOK, f.storeCode(t, "dup").StatusCode)
		require.Equal(t, http.StatusBadRequest, f.storeCode(t, "dup").StatusCode)
		require.Equal(t, http.StatusBadRequest, f.storeCode(t, "").StatusCode)

		resp, err := f.ts.Client().Get(f.ts.URL + server.RouteToken + "?action=something_else")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUserInfoEndpoint(t *testing.T) {
	f := setupTestFixture(t)
	f.storeCode(t, "demo-code")
	_, tok := f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "demo-code"})

	userInfo := func(t *testing.T, header string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, f.ts.URL+server.RouteUserInfo, nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("Live token returns the demo profile", func(t *testing.T) {
		resp := userInfo(t, "Bearer "+tok.AccessToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		decodeJSON(t, resp, &body)
		require.Equal(t, testSubject, body["sub"])
		require.Equal(t, "John Doe", body["name"])
		require.Equal(t, "john.doe@example.com", body["email"])
		require.Equal(t, true, body["email_verified"])
		require.NotEmpty(t, body["picture"])
		require.NotEmpty(t, body["updated_at"])
	})

	t.Run("Missing or malformed header is unauthorized", func(t *testing.T) {
		for _, header := range []string{"", "Basic abc", "Bearer "} {
			resp := userInfo(t, header)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body map[string]string
			decodeJSON(t, resp, &body)
			require.Equal(t, "unauthorized", body["error"])
		}
	})

	t.Run("Unknown token is invalid", func(t *testing.T) {
		resp := userInfo(t, "Bearer access_token_unknown")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "invalid_token", body["error"])
	})
}

func TestAuthorizeEndpoint(t *testing.T) {
	t.Run("Relative redirect URI is rejected", func(t *testing.T) {
		f := setupTestFixture(t)

		resp, err := f.browser.PostForm(f.ts.URL+server.RouteAuthorize, url.Values{
			"client_id":    {testClientID},
			"redirect_uri": {"/api/auth/callback"},
			"state":        {"s"},
			"decision":     {"approve"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "invalid_request", body["error"])
	})

	t.Run("Existing redirect query parameters are kept", func(t *testing.T) {
		f := setupTestFixture(t)

		resp, err := f.browser.PostForm(f.ts.URL+server.RouteAuthorize, url.Values{
			"client_id":    {testClientID},
			"redirect_uri": {"https://app.example.com/cb?tenant=acme"},
			"state":        {"xyz"},
			"decision":     {"approve"},
		})
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "app.example.com", location.Host)
		require.Equal(t, "acme", location.Query().Get("tenant"))
		require.Equal(t, "xyz", location.Query().Get("state"))
		require.NotEmpty(t, location.Query().Get("code"))
	})

	t.Run("Consent page defaults the client ID", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.get(t, server.RouteAuthorize)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
		body := readBody(t, resp)
		require.Contains(t, body, testClientID)
		require.Contains(t, body, `value="`+oauthmodel.DecisionApprove+`"`)
		require.Contains(t, body, `value="`+oauthmodel.DecisionDeny+`"`)
	})
}

func TestDiscoveryDocument(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, server.RouteWellKnownOpenIDConfig)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	decodeJSON(t, resp, &doc)
	require.Equal(t, f.ts.URL, doc["issuer"])
	require.Equal(t, f.ts.URL+server.RouteAuthorize, doc["authorization_endpoint"])
	require.Equal(t, f.ts.URL+server.RouteToken, doc["token_endpoint"])
	require.Equal(t, f.ts.URL+server.RouteUserInfo, doc["userinfo_endpoint"])
	require.Equal(t, []any{"openid"}, doc["scopes_supported"])
}

func TestHomePage(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "You are not signed in")

	f.signIn(t, "/")
	resp = f.get(t, "/")
	require.Contains(t, readBody(t, resp), "John Doe")

	resp = f.get(t, "/?error=OAuthCallback")
	require.Contains(t, readBody(t, resp), "Sign-in failed: OAuthCallback")
}

func TestMiddleware(t *testing.T) {
	t.Run("CORS preflight from an allowed origin", func(t *testing.T) {
		f := setupTestFixture(t)

		req, err := http.NewRequest(http.MethodOptions, f.ts.URL+server.RouteToken, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("CORS headers are withheld from unknown origins", func(t *testing.T) {
		f := setupTestFixture(t)

		req, err := http.NewRequest(http.MethodGet, f.ts.URL+server.RouteWellKnownOpenIDConfig, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://evil.example.com")
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("Panics become server errors", func(t *testing.T) {
		f := setupTestFixture(t)
		f.server.RegisterRouteHandler("GET /boom", server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}, f.server.APIMiddleware()...))

		resp := f.get(t, "/boom")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "server_error", body["error"])
	})

	t.Run("Metrics count issued tokens and served requests", func(t *testing.T) {
		f := setupTestFixture(t)
		f.storeCode(t, "demo-code")
		f.postTokenJSON(t, map[string]string{"grant_type": "authorization_code", "code": "demo-code"})

		resp := f.get(t, server.RouteMetrics)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		require.Contains(t, body, `mockoauth_tokens_issued_total{grant_type="authorization_code"} 1`)
		require.Contains(t, body, `mockoauth_http_requests_total{code="200",route="POST /api/auth/token"} 1`)
	})
}
