package config

import "time"

// Protocol constants of the mock provider. They are fixed rather than configurable so that
// every client sees the same code window and token lifetime.
const (
	authCodeTimeout   = 10 * time.Minute
	accessTokenExpiry = time.Hour
	tokenEntropyBytes = 32
	defaultScope      = "openid"
	demoSubjectID     = "mock-user-123"
)

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultScope() string
	GetSubjectID() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration { return authCodeTimeout }

// GetTokenLength is the number of random bytes behind every code and token.
func (OAuth) GetTokenLength() int { return tokenEntropyBytes }

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration { return accessTokenExpiry }

func (OAuth) GetDefaultScope() string { return defaultScope }

// GetSubjectID is the identity every grant is issued to. There is no login step.
func (OAuth) GetSubjectID() string { return demoSubjectID }
