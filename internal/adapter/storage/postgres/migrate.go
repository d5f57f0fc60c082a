package postgres

import (
	"errors"
	"fmt"

	"marketplace-backend/config"
	"marketplace-backend/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

// MigrateDirection selects which way Migrate moves the schema.
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Migrate applies the embedded schema migrations.
func Migrate(cfg config.DatabaseConfig, direction MigrateDirection, log zerolog.Logger) error {
	if direction != MigrateUp && direction != MigrateDown {
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrationURL())
	if err != nil {
		return fmt.Errorf("initializing migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source_err", srcErr).AnErr("db_err", dbErr).Msg("closing migrator")
		}
	}()

	if direction == MigrateUp {
		err = m.Up()
	} else {
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("direction", string(direction)).Msg("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("running migrations %s: %w", direction, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", verr)
	}
	log.Info().
		Str("direction", string(direction)).
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("migrations applied")
	return nil
}
