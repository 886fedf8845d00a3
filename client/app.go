// Package client is the demo application that signs users in against the provider and keeps
// their sessions usable.
package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-mock-oauth/client/authflowrepo"
	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Provider paths relative to the provider base URL.
const (
	AuthorizePath = "/auth/authorize"
	TokenPath     = "/api/auth/token"
	CallbackPath  = "/api/auth/callback"
)

const signInTimeout = 10 * time.Minute

var ErrUnknownState = errors.New("unknown or expired sign-in state")

// Config describes the client registration and where the provider lives.
type Config struct {
	ClientID      string
	ClientSecret  string
	BaseURL       string // provider issuer; the app is served from the same origin
	SessionSecret string
	SessionMaxAge time.Duration
}

type App struct {
	oauth       *oauth2.Config
	issuer      string
	sessions    sessions.Repo
	flows       authflowrepo.Repo
	cookies     *CookieCodec
	coordinator *Coordinator
	httpClient  *http.Client
	recorder    RefreshRecorder
	nowTime     func() time.Time

	providerMu sync.Mutex
	provider   *oidc.Provider
}

type AppOption func(*App)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AppOption {
	return func(a *App) {
		a.nowTime = nowFunc
	}
}

// WithHTTPClient sets the client used for every call to the provider.
func WithHTTPClient(httpClient *http.Client) AppOption {
	return func(a *App) {
		a.httpClient = httpClient
	}
}

func WithRecorder(recorder RefreshRecorder) AppOption {
	return func(a *App) {
		a.recorder = recorder
	}
}

func NewApp(cfg Config, sessionRepo sessions.Repo, flows authflowrepo.Repo, options ...AppOption) (*App, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[NewApp] client ID is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("[NewApp] base URL is required")
	}
	if sessionRepo == nil || flows == nil {
		return nil, errors.New("[NewApp] session and flow repos are required")
	}

	issuer := strings.TrimSuffix(cfg.BaseURL, "/")
	a := &App{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  issuer + CallbackPath,
			Scopes:       []string{oauthmodel.ScopeOpenID},
			Endpoint: oauth2.Endpoint{
				AuthURL:   issuer + AuthorizePath,
				TokenURL:  issuer + TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		issuer:   issuer,
		sessions: sessionRepo,
		flows:    flows,
		recorder: nopRefreshRecorder{},
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(a)
	}

	cookies, err := NewCookieCodec(cfg.SessionSecret, cfg.SessionMaxAge, a.nowTime)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp]")
	}
	a.cookies = cookies
	a.coordinator = NewCoordinator(sessionRepo, NewOAuth2Refresher(a.oauth),
		WithRefreshClock(a.nowTime),
		WithRefreshRecorder(a.recorder),
	)
	return a, nil
}

func (a *App) Cookies() *CookieCodec {
	return a.cookies
}

// StartSignIn records a new sign-in flow and returns the provider URL to send the user to.
func (a *App) StartSignIn(returnURL string) (string, error) {
	state := uuid.NewString()
	if err := a.flows.Upsert(state, &authflowrepo.AuthFlowState{
		ReturnURL: safeReturnURL(returnURL),
		CreatedAt: a.nowTime(),
	}); err != nil {
		return "", errors.Wrap(err, "[StartSignIn] failed to store flow state")
	}
	return a.oauth.AuthCodeURL(state), nil
}

// CompleteSignIn handles the provider callback: it checks state, exchanges the code, fetches the
// profile and creates the session. It returns the session and where to send the user next.
func (a *App) CompleteSignIn(ctx context.Context, state, code string) (sessions.Session, string, error) {
	flow, err := a.flows.Get(state)
	if err != nil {
		return sessions.Session{}, "", ErrUnknownState
	}
	if err := a.flows.Delete(state); err != nil {
		log.Err(err).Str("state", state).Msg("failed to delete sign-in flow state")
	}
	now := a.nowTime()
	if now.Sub(flow.CreatedAt) > signInTimeout {
		return sessions.Session{}, "", ErrUnknownState
	}

	ctx = a.clientContext(ctx)
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return sessions.Session{}, "", errors.Wrap(err, "[CompleteSignIn] code exchange failed")
	}
	user, err := a.fetchUser(ctx, tok)
	if err != nil {
		return sessions.Session{}, "", errors.Wrap(err, "[CompleteSignIn] user info failed")
	}

	session := sessions.Session{
		ID:                 uuid.NewString(),
		User:               user,
		AccessToken:        tok.AccessToken,
		RefreshToken:       tok.RefreshToken,
		AccessTokenExpires: accessTokenExpiry(now, tok),
		CreatedAt:          now,
	}
	if err := a.sessions.Upsert(session.ID, session); err != nil {
		return sessions.Session{}, "", errors.Wrap(err, "[CompleteSignIn] failed to store session")
	}
	return session, flow.ReturnURL, nil
}

// Session returns the caller's session with a usable access token; see Coordinator.Session.
func (a *App) Session(ctx context.Context, sessionID string) (sessions.Session, error) {
	return a.coordinator.Session(a.clientContext(ctx), sessionID)
}

// Lookup returns the stored session without refreshing it.
func (a *App) Lookup(sessionID string) (sessions.Session, error) {
	return a.sessions.Get(sessionID)
}

func (a *App) SignOut(sessionID string) error {
	return a.sessions.Delete(sessionID)
}

func (a *App) clientContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	return oidc.ClientContext(ctx, a.httpClient)
}

func (a *App) discover(ctx context.Context) (*oidc.Provider, error) {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()

	if a.provider != nil {
		return a.provider, nil
	}
	provider, err := oidc.NewProvider(ctx, a.issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[discover] failed to discover provider")
	}
	a.provider = provider
	return provider, nil
}

func (a *App) fetchUser(ctx context.Context, tok *oauth2.Token) (sessions.User, error) {
	provider, err := a.discover(ctx)
	if err != nil {
		return sessions.User{}, err
	}
	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return sessions.User{}, errors.Wrap(err, "[fetchUser] userinfo request failed")
	}
	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return sessions.User{}, errors.Wrap(err, "[fetchUser] failed to decode claims")
	}
	return sessions.User{
		ID:    info.Subject,
		Name:  claims.Name,
		Email: info.Email,
		Image: claims.Picture,
	}, nil
}

// safeReturnURL only lets local paths through.
func safeReturnURL(returnURL string) string {
	if !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") || strings.HasPrefix(returnURL, "/\\") {
		return "/"
	}
	return returnURL
}
