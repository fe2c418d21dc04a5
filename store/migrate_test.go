package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err, "should read embedded migrations directory")

	fileNames := make(map[string]bool)
	for _, entry := range entries {
		fileNames[entry.Name()] = true
	}
	for _, expected := range []string{
		"000001_accounts.up.sql",
		"000001_accounts.down.sql",
		"000002_identity_links.up.sql",
		"000002_identity_links.down.sql",
	} {
		assert.True(t, fileNames[expected], "should contain %s", expected)
	}

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNNNN_name.(up|down).sql", entry.Name())
	}
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/gk", migrateURL("postgres://u:p@db:5432/gk"))
	assert.Equal(t, "pgx5://db/gk", migrateURL("postgresql://db/gk"))
	assert.Equal(t, "pgx5://db/gk", migrateURL("pgx5://db/gk"))
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_INIT_FAILED")
}

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	srcErr     error
	dbErr      error
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrate) Close() (error, error) { return f.srcErr, f.dbErr }

func TestMigrator_UpNoChangeIsSuccess(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Up())

	m = &Migrator{m: &fakeMigrate{upErr: errors.New("syntax error")}}
	err := m.Up()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigrator_Down(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &fakeMigrate{downErr: migrate.ErrNoChange}}).Down())

	err := (&Migrator{m: &fakeMigrate{downErr: errors.New("locked")}}).Down()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Version(t *testing.T) {
	v, dirty, err := (&Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	v, dirty, err = (&Migrator{m: &fakeMigrate{version: 2, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.True(t, dirty)
}

func TestMigrator_CloseJoinsErrors(t *testing.T) {
	err := (&Migrator{m: &fakeMigrate{srcErr: errors.New("src"), dbErr: errors.New("db")}}).Close()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_CLOSE_FAILED")
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "db")

	assert.NoError(t, (&Migrator{m: &fakeMigrate{}}).Close())
}
