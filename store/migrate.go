package store

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register the pgx/v5 driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateIface abstracts golang-migrate so Migrator can be tested without a database.
type migrateIface interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m migrateIface
}

// migrateURL rewrites postgres:// and postgresql:// to the pgx5:// scheme
// golang-migrate's pgx/v5 driver registers.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// NewMigrator connects golang-migrate to databaseURL.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close()
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls back every migration. It drops all gatekeeper tables.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Version returns the applied version. An empty schema reports 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
