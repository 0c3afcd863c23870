package database

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending up migration for driver. It is a no-op when
// the schema is already current.
func Migrate(db *sql.DB, driver string) error {
	var (
		target migratedb.Driver
		err    error
	)
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return errors.Errorf("database: no migrations for driver %q", driver)
	}
	if err != nil {
		return errors.Wrap(err, "database: migration driver")
	}

	src, err := iofs.New(migrations, "migrations/"+driver)
	if err != nil {
		return errors.Wrap(err, "database: migration source")
	}

	// The migrate instance is not closed: closing it would close db.
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return errors.Wrap(err, "database: init migrate")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "database: migrate up")
	}
	return nil
}
