package cmd

import (
	"fmt"

	"github.com/bnema/beright/internal/config"
	"github.com/spf13/cobra"
)

func newSessionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain conversation sessions",
	}

	cmd.AddCommand(newSessionsPruneCmd(app))

	return cmd
}

func newSessionsPruneCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired conversation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Ledger.Driver != config.LedgerDriverSQLite {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Sessions live in the serve process memory with the toml ledger; its janitor prunes them.")
				return nil
			}

			removed, err := app.sessions.Prune(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired sessions\n", removed)
			return err
		},
	}
}
