package server_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-mock-oauth/internal/config"
	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/server"
	"github.com/jrsteele09/go-mock-oauth/store/memory"
	"github.com/jrsteele09/go-mock-oauth/store/redisstore"
	"github.com/jrsteele09/go-mock-oauth/store/sqlitestore"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory is the default", func(t *testing.T) {
		s, err := server.OpenStore(ctx, config.New(config.WithValue(config.StoreBackendEnvVar, config.StoreBackendMemory)))
		require.NoError(t, err)
		defer s.Close()
		require.IsType(t, &memory.Store{}, s)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := server.OpenStore(ctx, config.New(
			config.WithValue(config.StoreBackendEnvVar, config.StoreBackendRedis),
			config.WithValue(config.RedisAddrEnvVar, mr.Addr()),
		))
		require.NoError(t, err)
		defer s.Close()
		require.IsType(t, &redisstore.Store{}, s)
	})

	t.Run("SQLite creates its directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "mockoauth.db")
		s, err := server.OpenStore(ctx, config.New(
			config.WithValue(config.StoreBackendEnvVar, config.StoreBackendSQLite),
			config.WithValue(config.SQLitePathEnvVar, path),
		))
		require.NoError(t, err)
		defer s.Close()
		require.IsType(t, &sqlitestore.Store{}, s)
		require.FileExists(t, path)
	})

	t.Run("Unknown backend", func(t *testing.T) {
		_, err := server.OpenStore(ctx, config.New(config.WithValue(config.StoreBackendEnvVar, "cassandra")))
		require.ErrorIs(t, err, apperrors.ErrUnsupported)
	})
}
