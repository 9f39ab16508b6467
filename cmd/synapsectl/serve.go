package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/synapse-sync/core/internal/app"
	"github.com/synapse-sync/core/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			log.Fatal().Msg("DATABASE_URL is required")
		}
		return app.Serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
