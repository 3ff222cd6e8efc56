package postgres

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMigrate struct {
	upErr      error
	downErr    error
	versionVal uint
	versionErr error
	dirty      bool
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return nil, nil }

func TestMigratorUpIgnoresNoChange(t *testing.T) {
	m := &Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Up())
}

func TestMigratorUpWrapsFailure(t *testing.T) {
	cause := errors.New("syntax error")
	m := &Migrator{m: &mockMigrate{upErr: cause}}
	assert.ErrorIs(t, m.Up(), cause)
}

func TestMigratorVersionNilVersionIsZero(t *testing.T) {
	m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestMigrateURLRewritesScheme(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/roster", migrateURL("postgres://u:p@db:5432/roster"))
	assert.Equal(t, "pgx5://u:p@db:5432/roster", migrateURL("postgresql://u:p@db:5432/roster"))
	assert.Equal(t, "pgx5://db/roster", migrateURL("pgx5://db/roster"))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}
