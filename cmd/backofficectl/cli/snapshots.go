package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innkeeper/backoffice/internal/platform/cache"
)

// NewSnapshotsCommand manages the stored fallback snapshots.
func NewSnapshotsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage fallback snapshots",
	}

	cmd.AddCommand(newSnapshotsPurgeCommand(env))

	return cmd
}

func newSnapshotsPurgeCommand(env *Env) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Invalidate every stored snapshot",
		Long:  "Moves snapshots to a new version so pages stop falling back to the current ones. Requires --yes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to purge snapshots without --yes")
			}
			client, err := cache.New(cmd.Context(), env.Config.RedisAddr)
			if err != nil {
				return err
			}
			defer client.Close()
			version, err := cache.Purge(cmd.Context(), client)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshots purged, now at version %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Confirm the purge")

	return cmd
}
