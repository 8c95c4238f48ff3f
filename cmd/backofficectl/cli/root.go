package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/innkeeper/backoffice/internal/app"
)

// VersionInfo is stamped at build time.
type VersionInfo struct {
	Version string
	Commit  string
}

// Env is shared by every command once the root has loaded configuration.
type Env struct {
	Config *app.Config
	Logger *slog.Logger
}

// NewRootCommand builds backofficectl with all of its subcommands.
func NewRootCommand(info VersionInfo) *cobra.Command {
	env := &Env{}
	var level string

	cmd := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Hotel back-office operator tool",
		Long:          "Lists back-office resources through the same pipeline the console uses and manages snapshot jobs.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env.Config = cfg
			env.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: app.ParseLevel(level),
			}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&level, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	cmd.AddCommand(NewListCommand(env))
	cmd.AddCommand(NewJobsCommand(env))
	cmd.AddCommand(NewSnapshotsCommand(env))

	return cmd
}
