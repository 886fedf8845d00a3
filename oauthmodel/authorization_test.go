package oauthmodel_test

import (
	"net/url"
	"testing"

	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestCallbackURL(t *testing.T) {
	t.Run("appends code and state", func(t *testing.T) {
		p := &oauthmodel.AuthorizationParameters{RedirectURI: "http://localhost:3000/api/auth/callback", State: "xyz"}
		callback, err := p.CallbackURL("auth_code_abc")
		require.NoError(t, err)

		u, err := url.Parse(callback)
		require.NoError(t, err)
		require.Equal(t, "/api/auth/callback", u.Path)
		require.Equal(t, "auth_code_abc", u.Query().Get("code"))
		require.Equal(t, "xyz", u.Query().Get("state"))
	})

	t.Run("keeps existing query", func(t *testing.T) {
		p := &oauthmodel.AuthorizationParameters{RedirectURI: "https://app.example/cb?tenant=a", State: "s"}
		callback, err := p.CallbackURL("c")
		require.NoError(t, err)

		u, err := url.Parse(callback)
		require.NoError(t, err)
		require.Equal(t, "a", u.Query().Get("tenant"))
		require.Equal(t, "c", u.Query().Get("code"))
	})

	t.Run("empty state is still echoed", func(t *testing.T) {
		p := &oauthmodel.AuthorizationParameters{RedirectURI: "https://app.example/cb"}
		callback, err := p.CallbackURL("c")
		require.NoError(t, err)
		require.Contains(t, callback, "state=")
	})
}

func TestValidateRedirectURI(t *testing.T) {
	for _, uri := range []string{"", "/relative/path", "::not a url", "ftp://files.example/cb", "https://app.example/cb#frag", "http:///nohost"} {
		t.Run(uri, func(t *testing.T) {
			p := &oauthmodel.AuthorizationParameters{RedirectURI: uri}
			_, err := p.ValidateRedirectURI()
			require.ErrorIs(t, err, oauthmodel.ErrInvalidRedirectUri)
			require.ErrorIs(t, err, apperrors.ErrInvalidRedirectURI)
		})
	}
}

func TestApproved(t *testing.T) {
	require.True(t, (&oauthmodel.AuthorizationParameters{Decision: "approve"}).Approved())
	require.True(t, (&oauthmodel.AuthorizationParameters{Decision: "Approve"}).Approved())
	require.False(t, (&oauthmodel.AuthorizationParameters{Decision: oauthmodel.DecisionDeny}).Approved())
	require.False(t, (&oauthmodel.AuthorizationParameters{}).Approved())
}
