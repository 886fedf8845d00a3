// Package storetest holds the behaviour every store backing must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backing. Cleanup belongs to the factory (t.Cleanup).
type Factory func(t *testing.T) store.Store

// Backings persist millisecond precision, so fixtures avoid anything finer.
var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const concurrentCallers = 16

// Run exercises a backing against the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("codes", func(t *testing.T) { testCodes(t, newStore) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, newStore) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, newStore) })
	t.Run("concurrent take", func(t *testing.T) { testConcurrentTake(t, newStore) })
}

func newCode(value string) *store.AuthorizationCode {
	return &store.AuthorizationCode{
		Value:       value,
		ClientID:    "mock-client-id",
		RedirectURI: "http://localhost:8080/api/auth/callback",
		IssuedAt:    baseTime,
		ExpiresAt:   baseTime.Add(10 * time.Minute),
	}
}

func newPair(n int) *store.TokenPair {
	return &store.TokenPair{
		AccessToken:  fmt.Sprintf("access_token_%d", n),
		RefreshToken: fmt.Sprintf("refresh_token_%d", n),
		SubjectID:    "mock-user-123",
		Scope:        "openid",
		IssuedAt:     baseTime,
		ExpiresAt:    baseTime.Add(time.Hour),
	}
}

func testCodes(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("consume once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutCode(ctx, newCode("auth_code_1")))

		consumed, err := s.ConsumeCode(ctx, "auth_code_1", baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, "auth_code_1", consumed.Value)
		require.Equal(t, "mock-client-id", consumed.ClientID)
		require.Equal(t, "http://localhost:8080/api/auth/callback", consumed.RedirectURI)
		require.True(t, consumed.IssuedAt.Equal(baseTime))
		require.True(t, consumed.ExpiresAt.Equal(baseTime.Add(10*time.Minute)))
		require.True(t, consumed.Used)

		_, err = s.ConsumeCode(ctx, "auth_code_1", baseTime.Add(time.Minute))
		require.ErrorIs(t, err, store.ErrCodeUsed)
	})

	t.Run("unknown", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ConsumeCode(ctx, "auth_code_missing", baseTime)
		require.ErrorIs(t, err, store.ErrCodeNotFound)
	})

	t.Run("expiry boundary", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutCode(ctx, newCode("auth_code_late")))
		require.NoError(t, s.PutCode(ctx, newCode("auth_code_edge")))

		_, err := s.ConsumeCode(ctx, "auth_code_late", baseTime.Add(10*time.Minute+time.Millisecond))
		require.ErrorIs(t, err, store.ErrCodeExpired)

		_, err = s.ConsumeCode(ctx, "auth_code_edge", baseTime.Add(10*time.Minute))
		require.NoError(t, err)
	})

	t.Run("expired code stays unusable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutCode(ctx, newCode("auth_code_old")))
		_, err := s.ConsumeCode(ctx, "auth_code_old", baseTime.Add(time.Hour))
		require.ErrorIs(t, err, store.ErrCodeExpired)
		_, err = s.ConsumeCode(ctx, "auth_code_old", baseTime)
		require.NoError(t, err, "a rejected expired consume must not mark the code used")
	})

	t.Run("duplicate put", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutCode(ctx, newCode("auth_code_dup")))
		_, err := s.ConsumeCode(ctx, "auth_code_dup", baseTime)
		require.NoError(t, err)

		require.ErrorIs(t, s.PutCode(ctx, newCode("auth_code_dup")), store.ErrCodeExists)
		_, err = s.ConsumeCode(ctx, "auth_code_dup", baseTime)
		require.ErrorIs(t, err, store.ErrCodeUsed)
	})
}

func testConcurrentConsume(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.PutCode(ctx, newCode("auth_code_race")))

	var wins, used atomic.Int32
	var wg sync.WaitGroup
	for range concurrentCallers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeCode(ctx, "auth_code_race", baseTime)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrCodeUsed):
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(concurrentCallers-1), used.Load())
}

func testTokens(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("lookup by access token", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutTokens(ctx, newPair(1)))

		pair, err := s.GetByAccessToken(ctx, "access_token_1")
		require.NoError(t, err)
		require.Equal(t, "refresh_token_1", pair.RefreshToken)
		require.Equal(t, "mock-user-123", pair.SubjectID)
		require.Equal(t, "openid", pair.Scope)
		require.True(t, pair.IssuedAt.Equal(baseTime))
		require.True(t, pair.ExpiresAt.Equal(baseTime.Add(time.Hour)))

		_, err = s.GetByAccessToken(ctx, "refresh_token_1")
		require.ErrorIs(t, err, store.ErrTokenNotFound)
	})

	t.Run("take removes the pair", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutTokens(ctx, newPair(1)))
		require.NoError(t, s.PutTokens(ctx, newPair(2)))

		pair, err := s.TakeByRefreshToken(ctx, "refresh_token_1")
		require.NoError(t, err)
		require.Equal(t, "access_token_1", pair.AccessToken)
		require.Equal(t, "mock-user-123", pair.SubjectID)

		_, err = s.GetByAccessToken(ctx, "access_token_1")
		require.ErrorIs(t, err, store.ErrTokenNotFound)
		_, err = s.TakeByRefreshToken(ctx, "refresh_token_1")
		require.ErrorIs(t, err, store.ErrTokenNotFound)

		_, err = s.GetByAccessToken(ctx, "access_token_2")
		require.NoError(t, err, "other pairs are untouched")
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutTokens(ctx, newPair(1)))

		_, err := s.TakeByRefreshToken(ctx, "refresh_token_unknown")
		require.ErrorIs(t, err, store.ErrTokenNotFound)
		_, err = s.GetByAccessToken(ctx, "access_token_1")
		require.NoError(t, err)
	})

	t.Run("duplicate put", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutTokens(ctx, newPair(1)))
		require.ErrorIs(t, s.PutTokens(ctx, newPair(1)), store.ErrTokenExists)
	})
}

func testConcurrentTake(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.PutTokens(ctx, newPair(7)))

	var wins, misses atomic.Int32
	var wg sync.WaitGroup
	for range concurrentCallers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TakeByRefreshToken(ctx, "refresh_token_7")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrTokenNotFound):
				misses.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(concurrentCallers-1), misses.Load())
}
