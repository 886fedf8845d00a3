package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-mock-oauth/internal/config"
	"github.com/jrsteele09/go-mock-oauth/internal/logging"
	"github.com/jrsteele09/go-mock-oauth/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the provider and the demo application",
	Long: `Serve the provider and the demo application on one port.

Flags override the matching environment variables:
  --port       PORT
  --store      STORE_BACKEND (memory, redis, sqlite)
  --log-level  LOG_LEVEL
  --base-url   BASE_URL

Examples:
  mockoauth serve
  mockoauth serve --store sqlite
  STORE_BACKEND=redis REDIS_ADDR=localhost:6379 mockoauth serve`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("port", "", "Port to listen on")
	cmd.Flags().String("store", "", "Code and token store backend (memory, redis, sqlite)")
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().String("base-url", "", "Public base URL of the app")
}

// flagOverrides maps the command's flags onto config overrides; unset flags are ignored.
func flagOverrides(cmd *cobra.Command) []config.Option {
	flagVars := map[string]string{
		"port":      config.PortEnvVar,
		"store":     config.StoreBackendEnvVar,
		"log-level": config.LogLevelEnvVar,
		"base-url":  config.BaseURLEnvVar,
	}
	var options []config.Option
	for flag, envVar := range flagVars {
		if value, err := cmd.Flags().GetString(flag); err == nil {
			options = append(options, config.WithValue(envVar, value))
		}
	}
	return options
}

func runServe(cmd *cobra.Command, _ []string) error {
	c := config.New(flagOverrides(cmd)...)
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := server.OpenStore(ctx, c)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Err(err).Msg("failed to close store")
		}
	}()

	handler, err := server.New(c, server.Repos{Store: st})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer, c)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	if err := shutdown(httpServer); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func listenAndServe(httpServer *http.Server, c config.Config) error {
	log.Info().
		Str("addr", httpServer.Addr).
		Str("base_url", c.GetBaseURL()).
		Str("store", c.GetStoreBackend()).
		Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
