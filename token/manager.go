package token

import (
	"time"

	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/pkg/errors"
)

const (
	defaultTokenLength       = 32
	defaultAccessTokenExpiry = time.Hour
	defaultCodeTimeout       = 10 * time.Minute
	defaultScope             = "openid"
)

// Manager mints authorization codes and token pairs. It does not store them.
type Manager struct {
	generator         Generator
	accessTokenExpiry time.Duration
	codeTimeout       time.Duration
	scope             string
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithCodeTimeout(codeTimeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.codeTimeout = codeTimeout
	}
}

func WithScope(scope string) ManagerOption {
	return func(m *Manager) {
		m.scope = scope
	}
}

func WithGenerator(generator Generator) ManagerOption {
	return func(m *Manager) {
		m.generator = generator
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(options ...ManagerOption) *Manager {
	m := &Manager{
		generator:         NewRandomGenerator(defaultTokenLength),
		accessTokenExpiry: defaultAccessTokenExpiry,
		codeTimeout:       defaultCodeTimeout,
		scope:             defaultScope,
		nowFunc:           time.Now,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// AccessTokenExpiry is the lifetime reported as expires_in.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) Scope() string {
	return m.scope
}

// NewAuthorizationCode mints an unused code valid for the code timeout from now.
func (m *Manager) NewAuthorizationCode(value, clientID, redirectURI string) (*store.AuthorizationCode, error) {
	if value == "" {
		generated, err := m.generator.Generate(KindAuthorizationCode)
		if err != nil {
			return nil, errors.Wrap(err, "[Manager.NewAuthorizationCode]")
		}
		value = generated
	}
	now := m.nowFunc()
	return &store.AuthorizationCode{
		Value:       value,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.codeTimeout),
	}, nil
}

// NewPair mints a fresh access and refresh token for subjectID.
func (m *Manager) NewPair(subjectID string) (*store.TokenPair, error) {
	accessToken, err := m.generator.Generate(KindAccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.NewPair] access token")
	}
	refreshToken, err := m.generator.Generate(KindRefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.NewPair] refresh token")
	}
	now := m.nowFunc()
	return &store.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SubjectID:    subjectID,
		Scope:        m.scope,
		IssuedAt:     now,
		ExpiresAt:    now.Add(m.accessTokenExpiry),
	}, nil
}
