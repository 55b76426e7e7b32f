package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewCheckConfigCmd runs the startup validation and exits.
func NewCheckConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and riddle catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			catalog, err := loadCatalog(cmd.Context(), cfg)
			if err != nil {
				log.Error("catalog invalid", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d keys, store %s, catalog from %s\n",
				catalog.Len(), cfg.StoreBackend(), cfg.Contest.CatalogSourceName())
			return nil
		},
	}
}
