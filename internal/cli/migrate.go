package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the record table and its indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, logger, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer container.Close()

			if err := container.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema ready", zap.String("driver", container.Config().Store.Driver))
			return nil
		},
	}
}
