package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/synapse-sync/core/internal/app"
	"github.com/synapse-sync/core/internal/config"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	if err := app.Serve(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}
