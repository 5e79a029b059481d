package gridstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/groundmotion/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion is the migration version a readable resource must be at.
const SchemaVersion = 1

// migrateUp brings a writable store to SchemaVersion.
func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close s.db as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logf: monitoring.Component("migrate")}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	logf func(format string, v ...interface{})
}

func (l migrateLogger) Printf(format string, v ...interface{}) { l.logf(format, v...) }

func (l migrateLogger) Verbose() bool { return false }

// schemaVersion reads the applied migration version without touching the
// schema, so it works on read-only connections.
func (s *Store) schemaVersion() (version uint, dirty bool, err error) {
	var exists bool
	err = s.db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_migrations'
	`).Scan(&exists)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, nil
	}
	err = s.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	return version, dirty, err
}
