package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log)

	if err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, direction); err != nil {
		logger.Fatal().Err(err).Str("direction", direction).Msg("migrate")
	}

	logger.Info().Str("direction", direction).Str("dir", cfg.Database.MigrationsPath).Msg("migrations complete")
}
