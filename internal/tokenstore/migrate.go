package tokenstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationsTable records the token schema version. It has its own name so
// the token file can share a database with other migrated schemas.
const migrationsTable = "tokenstore_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateSchema brings the kv schema at dbPath up to date and returns the
// version it ends on. A dirty schema from an interrupted run is an error.
func migrateSchema(dbPath string) (uint, error) {
	// The driver closes its handle on Close, so it gets its own pool.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open token schema: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return 0, fmt.Errorf("token schema driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("token schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("token schema migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate token schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read token schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("token schema version %d is dirty", version)
	}
	return version, nil
}
