package cli

import (
	"fmt"

	"project-management-api/internal/database"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the schema and seed the default roles",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if _, err := database.InitDB(database.OptionsFromConfig(cfg.Database)); err != nil {
				return err
			}
			logger.Sugar().Infow("database migrated", "driver", cfg.Database.Driver)
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
