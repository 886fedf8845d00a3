package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-mock-oauth/auth"
	"github.com/jrsteele09/go-mock-oauth/client"
	"github.com/jrsteele09/go-mock-oauth/client/authflowrepo"
	"github.com/jrsteele09/go-mock-oauth/internal/config"
	"github.com/jrsteele09/go-mock-oauth/metrics"
	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/jrsteele09/go-mock-oauth/token"
	"github.com/jrsteele09/go-mock-oauth/users"
	fakeuserrepo "github.com/jrsteele09/go-mock-oauth/users/repofake"
	"github.com/rs/zerolog/log"
)

// Repos holds the storage the server runs on. Only Store is required; the rest default to
// in-memory implementations.
type Repos struct {
	Store    store.Store
	Users    users.UserRepo
	Sessions sessions.Repo
	Flows    authflowrepo.Repo
}

// Server hosts the mock provider and the demo client application on one mux.
type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.AuthorizationService
	app       *client.App
	metrics   *metrics.Metrics
	templates map[string]*template.Template
	nowTime   func() time.Time
}

type Option func(*Server)

// WithNowTime sets the clock shared by the provider and the client (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(cfg config.Config, repos Repos, options ...Option) (*Server, error) {
	return newServer(cfg, repos, nil, options...)
}

// NewWithHTTPClient is New with an explicit client for the calls the demo app makes to the provider.
func NewWithHTTPClient(cfg config.Config, repos Repos, httpClient *http.Client, options ...Option) (*Server, error) {
	return newServer(cfg, repos, httpClient, options...)
}

func newServer(cfg config.Config, repos Repos, httpClient *http.Client, options ...Option) (*Server, error) {
	if repos.Store == nil {
		return nil, errors.New("[Server New] store is required")
	}
	if repos.Users == nil {
		repos.Users = fakeuserrepo.NewFakeUserRepo(users.DemoUser())
	}
	if repos.Sessions == nil {
		repos.Sessions = sessions.NewInMemoryRepo()
	}
	if repos.Flows == nil {
		repos.Flows = authflowrepo.NewInMemoryRepo()
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	tokenManager := token.New(
		token.WithGenerator(token.NewRandomGenerator(cfg.GetTokenLength())),
		token.WithTokenExpiry(cfg.GetDefaultAccessTokenExpiry()),
		token.WithCodeTimeout(cfg.GetAuthCodeTimeout()),
		token.WithScope(cfg.GetDefaultScope()),
		token.WithNowFunc(s.nowTime),
	)
	authService, err := auth.NewAuthorizationService(
		auth.Repos{Codes: repos.Store, Tokens: repos.Store, Users: repos.Users},
		tokenManager,
		auth.WithSubject(cfg.GetSubjectID()),
		auth.WithRecorder(s.metrics),
		auth.WithNowTime(s.nowTime),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}
	s.auth = authService

	appOptions := []client.AppOption{client.WithNowTime(s.nowTime), client.WithRecorder(s.metrics)}
	if httpClient != nil {
		appOptions = append(appOptions, client.WithHTTPClient(httpClient))
	}
	app, err := client.NewApp(client.Config{
		ClientID:      cfg.GetClientID(),
		ClientSecret:  cfg.GetClientSecret(),
		BaseURL:       cfg.GetBaseURL(),
		SessionSecret: cfg.GetSessionSecret(),
		SessionMaxAge: cfg.GetSessionMaxAge(),
	}, repos.Sessions, repos.Flows, appOptions...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create client app: %w", err)
	}
	s.app = app

	if s.templates, err = parseTemplates(templateConsent, templateHome); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}

// secureCookies is true when the app is served over https.
func (s *Server) secureCookies() bool {
	return strings.HasPrefix(s.config.GetBaseURL(), "https://")
}
