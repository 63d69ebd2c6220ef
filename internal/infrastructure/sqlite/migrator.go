package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func newMigrate(path string) (*migrate.Migrate, *sql.DB, error) {
	// A separate connection keeps the migrator from closing the caller's pool.
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, db, nil
}

// RunMigrations applies every pending migration to the database at path.
func RunMigrations(path string, logger zerolog.Logger) error {
	m, db, err := newMigrate(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Str("path", path).Msg("sqlite migrations: no change")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Str("path", path).Msg("sqlite migrations: applied successfully")
	return nil
}

// RunMigrationsDown rolls back the last migration.
func RunMigrationsDown(path string, logger zerolog.Logger) error {
	m, db, err := newMigrate(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}

	logger.Info().Str("path", path).Msg("sqlite migrations: rolled back successfully")
	return nil
}
