package cli

import (
	"fmt"

	"project-management-api/internal/config"
	"project-management-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRoutesCommand prints the route table without opening a database.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "routes",
		Short:        "Print the HTTP route table",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if rootOpts.ConfigPath != "" {
				var err error
				if cfg, err = config.Load(rootOpts.ConfigPath); err != nil {
					return err
				}
			}
			gin.SetMode(gin.ReleaseMode)
			router := routes.SetupRoutes(routes.NewDeps(zap.NewNop(), cfg, nil, nil))
			for _, line := range routes.Table(router) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
