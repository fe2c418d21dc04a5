package main

import (
	"github.com/spf13/cobra"
)

var envFile string

// NewRootCmd creates the root command for the gatekeeper CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Game client login and session service",
		Long: `gatekeeper authenticates game clients by session token or password,
enforces bans and external identity links, and issues session tokens.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewLinkCmd())

	return cmd
}
