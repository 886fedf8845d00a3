package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-mock-oauth/internal/config"
	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/jrsteele09/go-mock-oauth/server"
	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/jrsteele09/go-mock-oauth/store/memory"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "mock-client-id"
	testSubject  = "mock-user-123"
)

// clock is shared by the provider and the demo app and moved by tests
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSessions remembers the last session written so tests can reach behind the cookie
type recordingSessions struct {
	*sessions.InMemoryRepo
	mu     sync.Mutex
	lastID string
}

func (r *recordingSessions) Upsert(sessionID string, session sessions.Session) error {
	r.mu.Lock()
	r.lastID = sessionID
	r.mu.Unlock()
	return r.InMemoryRepo.Upsert(sessionID, session)
}

func (r *recordingSessions) LastID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastID
}

// testFixture holds a running server and a browser-like client with a cookie jar
type testFixture struct {
	ts       *httptest.Server
	clock    *clock
	store    *memory.Store
	sessions *recordingSessions
	server   *server.Server
	browser  *http.Client

	lastCallback string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		clock:    &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		store:    memory.New(),
		sessions: &recordingSessions{InMemoryRepo: sessions.NewInMemoryRepo()},
	}

	var handler http.Handler = http.NotFoundHandler()
	f.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(f.ts.Close)

	cfg := config.New(
		config.WithValue(config.BaseURLEnvVar, f.ts.URL),
		config.WithValue(config.EnvEnvVar, "TEST"),
		config.WithValue(config.ClientIDEnvVar, testClientID),
		config.WithValue(config.ClientSecretEnvVar, "mock-client-secret"),
		config.WithValue(config.SessionSecretEnvVar, "test-session-secret"),
	)
	srv, err := server.NewWithHTTPClient(cfg,
		server.Repos{Store: f.store, Sessions: f.sessions},
		f.ts.Client(),
		server.WithNowTime(f.clock.Now),
	)
	require.NoError(t, err)
	f.server = srv
	handler = srv

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.browser = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *testFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.browser.Get(f.absolute(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *testFixture) absolute(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return f.ts.URL + path
}

// signIn walks the browser through the whole authorization code flow and returns where the
// app finally sent it
func (f *testFixture) signIn(t *testing.T, returnURL string) string {
	t.Helper()

	resp := f.get(t, server.RouteSignIn+"?callbackUrl="+url.QueryEscape(returnURL))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	authorizeURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteAuthorize, authorizeURL.Path)
	query := authorizeURL.Query()
	require.Equal(t, testClientID, query.Get("client_id"))
	require.Equal(t, "code", query.Get("response_type"))
	require.NotEmpty(t, query.Get("state"))

	consent := f.get(t, authorizeURL.String())
	require.Equal(t, http.StatusOK, consent.StatusCode)
	body := readBody(t, consent)
	require.Contains(t, body, testClientID)
	require.Contains(t, body, "Approve")

	resp, err = f.browser.PostForm(f.ts.URL+server.RouteAuthorize, url.Values{
		"client_id":    {query.Get("client_id")},
		"redirect_uri": {query.Get("redirect_uri")},
		"state":        {query.Get("state")},
		"decision":     {oauthmodel.DecisionApprove},
	})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	callbackURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteCallback, callbackURL.Path)
	require.Equal(t, query.Get("state"), callbackURL.Query().Get("state"))
	require.True(t, strings.HasPrefix(callbackURL.Query().Get("code"), "auth_code_"))

	f.lastCallback = callbackURL.String()
	resp = f.get(t, f.lastCallback)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return resp.Header.Get("Location")
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type sessionBody struct {
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Image string `json:"image"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
	Expires     string `json:"expires"`
	Error       string `json:"error"`
}

func (f *testFixture) session(t *testing.T) sessionBody {
	t.Helper()
	resp := f.get(t, server.RouteSession)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body sessionBody
	decodeJSON(t, resp, &body)
	return body
}

func TestSignInFlow(t *testing.T) {
	t.Run("SignIn creates a session and returns to the requested page", func(t *testing.T) {
		f := setupTestFixture(t)

		require.Equal(t, "/dashboard", f.signIn(t, "/dashboard"))

		s := f.session(t)
		require.Equal(t, testSubject, s.User.ID)
		require.Equal(t, "John Doe", s.User.Name)
		require.Equal(t, "john.doe@example.com", s.User.Email)
		require.NotEmpty(t, s.User.Image)
		require.True(t, strings.HasPrefix(s.AccessToken, "access_token_"))
		require.Empty(t, s.Error)
		require.Equal(t, "2024-01-01T13:00:00Z", s.Expires)
	})

	t.Run("Foreign return URLs are replaced with the root", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Equal(t, "/", f.signIn(t, "https://evil.example.com/"))
	})

	t.Run("Products require a session", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.get(t, server.RouteProducts)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "unauthorized", body["error"])
		require.Equal(t, "You must be logged in to view products", body["message"])

		f.signIn(t, "/")
		resp = f.get(t, server.RouteProducts)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list struct {
			Products []struct {
				ID string `json:"id"`
			} `json:"products"`
			Total     int    `json:"total"`
			Timestamp string `json:"timestamp"`
		}
		decodeJSON(t, resp, &list)
		require.Equal(t, 6, list.Total)
		require.Len(t, list.Products, 6)
		require.Equal(t, "2024-01-01T12:00:00.000Z", list.Timestamp)
	})

	t.Run("Session without a cookie is empty", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.get(t, server.RouteSession)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `{}`, readBody(t, resp))
	})

	t.Run("SignOut clears the session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(t, "/")

		resp := f.get(t, server.RouteSignOut)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp = f.get(t, server.RouteProducts)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_, err := f.sessions.Get(f.sessions.LastID())
		require.Error(t, err)
	})

	t.Run("Callback with an unknown state redirects with an error", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.get(t, server.RouteCallback+"?code=auth_code_x&state=never-issued")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/?error=OAuthCallback", resp.Header.Get("Location"))
	})

	t.Run("A sign-in state is honoured once", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Equal(t, "/dashboard", f.signIn(t, "/dashboard"))

		resp := f.get(t, f.lastCallback)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/?error=OAuthCallback", resp.Header.Get("Location"))
	})

	t.Run("Deny returns the browser to the root without a code", func(t *testing.T) {
		f := setupTestFixture(t)

		resp, err := f.browser.PostForm(f.ts.URL+server.RouteAuthorize, url.Values{
			"client_id":    {testClientID},
			"redirect_uri": {f.ts.URL + server.RouteCallback},
			"state":        {"s"},
			"decision":     {oauthmodel.DecisionDeny},
		})
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/", resp.Header.Get("Location"))
	})
}

func TestSessionRefresh(t *testing.T) {
	t.Run("Expired access token is refreshed transparently", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(t, "/")
		before := f.session(t)

		// Still valid: no refresh.
		f.clock.Advance(30 * time.Minute)
		require.Equal(t, before.AccessToken, f.session(t).AccessToken)

		f.clock.Advance(time.Hour)
		after := f.session(t)
		require.NotEqual(t, before.AccessToken, after.AccessToken)
		require.Empty(t, after.Error)
		require.Equal(t, "2024-01-01T14:30:00Z", after.Expires)

		// The rotated-out access token is no longer honoured by the provider.
		req, err := http.NewRequest(http.MethodGet, f.ts.URL+server.RouteUserInfo, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+before.AccessToken)
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "invalid_token", body["error"])
	})

	t.Run("Rejected refresh marks the session and locks out products", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(t, "/")

		stored, err := f.sessions.Get(f.sessions.LastID())
		require.NoError(t, err)
		_, err = f.store.TakeByRefreshToken(context.Background(), stored.RefreshToken)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		s := f.session(t)
		require.Equal(t, sessions.RefreshAccessTokenError, s.Error)
		require.Equal(t, stored.AccessToken, s.AccessToken)

		resp := f.get(t, server.RouteProducts)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// Signing in again clears the condition.
		f.signIn(t, "/")
		resp = f.get(t, server.RouteProducts)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
