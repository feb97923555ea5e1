package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store schema migrations",
	Long:  "Creates or upgrades the census tables and run log of the configured store (sqlite or postgres).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stringFlag(cmd, "store", &cfg.Store.Driver)
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("all migrations applied successfully", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("store", "", "store driver: sqlite, postgres")
	rootCmd.AddCommand(migrateCmd)
}
