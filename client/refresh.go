package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-mock-oauth/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ErrReauthenticate means the session can no longer be used and the user must sign in again.
var ErrReauthenticate = errors.New("session requires re-authentication")

// Refresh outcomes reported to a RefreshRecorder.
const (
	RefreshOutcomeRefreshed   = "refreshed"
	RefreshOutcomeRejected    = "rejected"
	RefreshOutcomeUnavailable = "unavailable"
)

// defaultAccessTokenLifetime applies when a token response carries no expiry.
const defaultAccessTokenLifetime = time.Hour

type RefreshRecorder interface {
	RefreshCompleted(outcome string)
}

type nopRefreshRecorder struct{}

func (nopRefreshRecorder) RefreshCompleted(string) {}

// Coordinator hands out sessions with a usable access token, refreshing expired ones on the way.
//
// Refreshes are keyed by session ID through a singleflight group: concurrent requests that find
// the same session expired share one refresh call and its result.
type Coordinator struct {
	sessions  sessions.Repo
	refresher Refresher
	group     singleflight.Group
	recorder  RefreshRecorder
	nowTime   func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithRefreshClock(nowFunc func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.nowTime = nowFunc
	}
}

func WithRefreshRecorder(recorder RefreshRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

func NewCoordinator(repo sessions.Repo, refresher Refresher, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		sessions:  repo,
		refresher: refresher,
		recorder:  nopRefreshRecorder{},
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type refreshResult struct {
	session sessions.Session
	err     error
}

// Session returns the session for sessionID.
//
// A session already marked with the refresh error is returned with ErrReauthenticate. A session
// whose access token is still valid is returned as is. Otherwise the refresh grant runs before
// returning; on failure the session is marked, persisted and returned with an error wrapping
// ErrReauthenticate and one of ErrRefreshRejected or ErrRefreshUnavailable.
func (c *Coordinator) Session(ctx context.Context, sessionID string) (sessions.Session, error) {
	s, err := c.sessions.Get(sessionID)
	if err != nil {
		return sessions.Session{}, err
	}
	if s.RequiresReauthentication() {
		return s, ErrReauthenticate
	}
	if s.AccessTokenValid(c.nowTime()) {
		return s, nil
	}

	// The shared call must not die with whichever caller happened to start it.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(sessionID, func() (interface{}, error) {
		s, err := c.refresh(flightCtx, sessionID)
		return refreshResult{session: s, err: err}, nil
	})
	res := v.(refreshResult)
	return res.session, res.err
}

func (c *Coordinator) refresh(ctx context.Context, sessionID string) (sessions.Session, error) {
	// Re-read inside the flight: a flight that finished just before this one started may
	// already have rotated the tokens.
	s, err := c.sessions.Get(sessionID)
	if err != nil {
		return sessions.Session{}, err
	}
	if s.RequiresReauthentication() {
		return s, ErrReauthenticate
	}
	if s.AccessTokenValid(c.nowTime()) {
		return s, nil
	}

	tok, err := c.refresher.Refresh(ctx, s.RefreshToken)
	if err != nil {
		s.Error = sessions.RefreshAccessTokenError
		if updateErr := c.sessions.Update(sessionID, s); updateErr != nil {
			log.Err(updateErr).Str("session_id", sessionID).Msg("failed to persist refresh error")
		}
		outcome := RefreshOutcomeUnavailable
		if errors.Is(err, ErrRefreshRejected) {
			outcome = RefreshOutcomeRejected
		}
		c.recorder.RefreshCompleted(outcome)
		log.Warn().Err(err).Str("session_id", sessionID).Str("outcome", outcome).Msg("access token refresh failed")
		return s, fmt.Errorf("%w: %w", ErrReauthenticate, err)
	}

	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	s.AccessTokenExpires = accessTokenExpiry(c.nowTime(), tok)
	s.Error = ""
	// Update, not Upsert: a sign-out that lands while the refresh is in flight must win.
	if err := c.sessions.Update(sessionID, s); err != nil {
		return sessions.Session{}, fmt.Errorf("failed to persist refreshed session: %w", err)
	}
	c.recorder.RefreshCompleted(RefreshOutcomeRefreshed)
	log.Debug().Str("session_id", sessionID).Time("expires", s.AccessTokenExpires).Msg("access token refreshed")
	return s, nil
}

// accessTokenExpiry is now + expires_in, falling back to the token's absolute expiry.
func accessTokenExpiry(now time.Time, tok *oauth2.Token) time.Time {
	if tok.ExpiresIn > 0 {
		return now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return now.Add(defaultAccessTokenLifetime)
}
