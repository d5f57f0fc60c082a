package main

import (
	"flag"
	"fmt"
	"os"

	"marketplace-backend/config"
	pgStorage "marketplace-backend/internal/adapter/storage/postgres"
	"marketplace-backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	direction := flag.String("direction", string(pgStorage.MigrateUp), "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("Migrations only apply to the postgres driver")
	}

	if err := pgStorage.Migrate(cfg.Database, pgStorage.MigrateDirection(*direction), log); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}
}
