package main

import (
	"testing"

	"github.com/jrsteele09/go-mock-oauth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestFlagOverrides(t *testing.T) {
	t.Run("Set flags override the environment", func(t *testing.T) {
		t.Setenv(config.StoreBackendEnvVar, config.StoreBackendRedis)
		require.NoError(t, serveCmd.Flags().Set("store", config.StoreBackendSQLite))
		require.NoError(t, serveCmd.Flags().Set("port", "9090"))
		t.Cleanup(func() {
			_ = serveCmd.Flags().Set("store", "")
			_ = serveCmd.Flags().Set("port", "")
		})

		c := config.New(flagOverrides(serveCmd)...)
		require.Equal(t, config.StoreBackendSQLite, c.GetStoreBackend())
		require.Equal(t, ":9090", c.GetPort())
	})

	t.Run("Unset flags fall back to the environment", func(t *testing.T) {
		t.Setenv(config.StoreBackendEnvVar, config.StoreBackendRedis)

		c := config.New(flagOverrides(serveCmd)...)
		require.Equal(t, config.StoreBackendRedis, c.GetStoreBackend())
	})
}
