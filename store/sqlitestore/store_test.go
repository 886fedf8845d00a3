package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/jrsteele09/go-mock-oauth/store/sqlitestore"
	"github.com/jrsteele09/go-mock-oauth/store/storetest"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()

	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "mockoauth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t)
	})
}

func TestDeleteExpiredCodes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, lifetime := range []time.Duration{time.Minute, 10 * time.Minute} {
		require.NoError(t, s.PutCode(ctx, &store.AuthorizationCode{
			Value:     []string{"auth_code_short", "auth_code_long"}[i],
			IssuedAt:  issued,
			ExpiresAt: issued.Add(lifetime),
		}))
	}

	removed, err := s.DeleteExpiredCodes(ctx, issued.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = s.ConsumeCode(ctx, "auth_code_short", issued)
	require.ErrorIs(t, err, store.ErrCodeNotFound)
	_, err = s.ConsumeCode(ctx, "auth_code_long", issued.Add(5*time.Minute))
	require.NoError(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mockoauth.db")
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.PutTokens(ctx, &store.TokenPair{
		AccessToken:  "access_token_p",
		RefreshToken: "refresh_token_p",
		SubjectID:    "mock-user-123",
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(time.Hour),
	}))
	require.NoError(t, s.Close())

	s, err = sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	pair, err := s.GetByAccessToken(ctx, "access_token_p")
	require.NoError(t, err)
	require.Equal(t, "refresh_token_p", pair.RefreshToken)
}
