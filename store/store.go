// Package store defines the persistence contract for authorization codes and token pairs.
//
// Backings live in sub-packages (memory, redisstore, sqlitestore). Every backing must make
// ConsumeCode and TakeByRefreshToken atomic: under concurrent callers presenting the same code
// or refresh token exactly one succeeds.
package store

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
)

// Errors returned by every backing. They are the shared sentinels so callers can match either name.
var (
	ErrCodeNotFound  = apperrors.ErrCodeNotFound
	ErrCodeUsed      = apperrors.ErrCodeUsed
	ErrCodeExpired   = apperrors.ErrCodeExpired
	ErrCodeExists    = apperrors.ErrCodeExists
	ErrTokenNotFound = apperrors.ErrTokenNotFound
	ErrTokenExists   = apperrors.ErrTokenExists
)

// AuthorizationCode is a single-use credential issued by the authorization endpoint.
type AuthorizationCode struct {
	Value       string
	ClientID    string
	RedirectURI string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Used        bool
}

// Expired reports whether now is past the code's expiry. The expiry instant itself is still valid.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// TokenPair binds an access token and a refresh token to a subject.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SubjectID    string
	Scope        string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the access token of the pair is no longer usable at now.
func (p *TokenPair) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type CodeStore interface {
	// PutCode registers a fresh code. It fails with ErrCodeExists if the value is already known.
	PutCode(ctx context.Context, code *AuthorizationCode) error

	// ConsumeCode atomically checks and marks the code used, returning the consumed code.
	// It fails with ErrCodeNotFound, ErrCodeUsed or ErrCodeExpired.
	ConsumeCode(ctx context.Context, value string, now time.Time) (*AuthorizationCode, error)
}

type TokenStore interface {
	// PutTokens stores a new pair, indexed by both its access and refresh token.
	PutTokens(ctx context.Context, pair *TokenPair) error

	GetByAccessToken(ctx context.Context, accessToken string) (*TokenPair, error)

	// TakeByRefreshToken atomically removes and returns the pair holding refreshToken.
	// The pair's access token is no longer found afterwards.
	TakeByRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Store is a complete backing.
type Store interface {
	CodeStore
	TokenStore
	Close() error
}
