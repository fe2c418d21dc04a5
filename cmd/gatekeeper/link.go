package main

import (
	"github.com/spf13/cobra"

	"github.com/playgate/gatekeeper/identity"
	"github.com/playgate/gatekeeper/store"
)

// NewLinkCmd creates the link subcommand.
func NewLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <email> <external-id>",
		Short: "Link an external identity to an account email",
		Long: `Record an external identity link. Production logins require at least one
link per account.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, externalID := args[0], args[1]
			if _, err := identity.ParseID(externalID); err != nil {
				return err
			}

			cfg, err := loadDatabaseConfig(envFile)
			if err != nil {
				return err
			}
			pool, err := store.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.NewIdentityLinkRepository(pool).Link(cmd.Context(), email, externalID); err != nil {
				return err
			}
			cmd.Printf("Linked %s to %s\n", externalID, email)
			return nil
		},
	}
}
