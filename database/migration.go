package database

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/log"
)

//go:embed migrations
var dbMigrations embed.FS

// migrateDB brings the SQLite schema to the latest embedded version. A
// schema left dirty by an interrupted migration is refused, not retried.
func migrateDB(db *sql.DB) error {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "migration source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errors.Wrap(err, "migration target")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return err
	}

	from, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("db.migrate: empty database, creating schema")
	case err != nil:
		return errors.Wrap(err, "read schema version")
	case dirty:
		return errors.Errorf("schema is dirty at version %d, fix it by hand", from)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debugf("db.migrate: schema at version %d", from)
		return nil
	}
	if err != nil {
		return err
	}

	to, _, _ := migrator.Version()
	log.WithFields(log.Fields{"from": from, "to": to}).Info("db.migrate: schema migrated")
	return nil
}
