package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

var (
	// ErrRefreshRejected means the provider answered the refresh grant with an OAuth error.
	ErrRefreshRejected = errors.New("refresh rejected by provider")

	// ErrRefreshUnavailable means the provider could not be reached or failed internally.
	ErrRefreshUnavailable = errors.New("provider unavailable for refresh")
)

// Refresher runs the refresh-token grant.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuth2Refresher runs the grant through golang.org/x/oauth2. The HTTP client is taken from
// ctx (oauth2.HTTPClient) when present.
type OAuth2Refresher struct {
	config *oauth2.Config
}

var _ Refresher = (*OAuth2Refresher)(nil)

func NewOAuth2Refresher(config *oauth2.Config) *OAuth2Refresher {
	return &OAuth2Refresher{config: config}
}

func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// A token without an access token is never valid, so the source always refreshes.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}
	return tok, nil
}

func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response == nil || retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", ErrRefreshRejected, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrRefreshUnavailable, err)
}
