package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; running it without a subcommand serves the app.
var rootCmd = &cobra.Command{
	Use:   "mockoauth",
	Short: "Mock OAuth2 provider with a demo client application",
	Long: `mockoauth serves a mock OAuth2 identity provider (consent screen, token endpoint,
user info) together with a demo client application that signs users in against it,
keeps their sessions refreshed and serves a protected product catalog.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
