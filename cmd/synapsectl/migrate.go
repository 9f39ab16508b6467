package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/synapse-sync/core/internal/app"
	"github.com/synapse-sync/core/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the entity store schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			log.Fatal().Msg("DATABASE_URL is required")
		}
		st, err := app.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Pool.Close()
		log.Info().Msg("schema migration applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
