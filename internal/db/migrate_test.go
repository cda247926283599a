package db

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmptyDB opens a database file without any schema so the migration
// files are the only thing shaping it.
func newEmptyDB(t *testing.T) (*DB, fs.FS) {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrations, err := MigrationsFS()
	require.NoError(t, err)
	return db, migrations
}

func TestMigrations_UpFromEmpty(t *testing.T) {
	db, migrations := newEmptyDB(t)

	require.NoError(t, db.MigrateUp(migrations))

	names := tableNames(t, db)
	assert.Contains(t, names, "objects")
	assert.Contains(t, names, "runs")
	assert.Contains(t, names, "uploads")

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := GetLatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	// Running up again is a no-op, not an error.
	require.NoError(t, db.MigrateUp(migrations))
}

func TestMigrations_DownRemovesUploadJournal(t *testing.T) {
	db, migrations := newEmptyDB(t)
	require.NoError(t, db.MigrateUp(migrations))

	require.NoError(t, db.MigrateDown(migrations))

	names := tableNames(t, db)
	assert.NotContains(t, names, "uploads")
	assert.Contains(t, names, "runs", "rolling back one step must not touch earlier tables")

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrations_LatestVersion(t *testing.T) {
	migrations, err := MigrationsFS()
	require.NoError(t, err)

	latest, err := GetLatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)
}

func TestMigrations_MigrateToSpecificVersion(t *testing.T) {
	db, migrations := newEmptyDB(t)

	require.NoError(t, db.MigrateTo(migrations, 1))
	names := tableNames(t, db)
	assert.Contains(t, names, "runs")
	assert.NotContains(t, names, "uploads")

	require.NoError(t, db.MigrateTo(migrations, 2))
	assert.Contains(t, tableNames(t, db), "uploads")
}

func TestMigrations_ForceOverwritesVersion(t *testing.T) {
	db, migrations := newEmptyDB(t)
	require.NoError(t, db.MigrateUp(migrations))

	require.NoError(t, db.MigrateForce(migrations, 1))

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrations_BaselineRefusesMigratedDatabase(t *testing.T) {
	db, migrations := newEmptyDB(t)
	require.NoError(t, db.MigrateUp(migrations))

	assert.Error(t, db.BaselineAtVersion(1))
}

func TestMigrations_CheckAndPrompt(t *testing.T) {
	db, migrations := newEmptyDB(t)

	needed, err := db.CheckAndPromptMigrations(migrations)
	assert.True(t, needed)
	assert.Error(t, err, "an unmigrated database must be flagged")

	require.NoError(t, db.MigrateUp(migrations))

	needed, err = db.CheckAndPromptMigrations(migrations)
	require.NoError(t, err)
	assert.False(t, needed)
}

func TestMigrations_StatusSummary(t *testing.T) {
	db, migrations := newEmptyDB(t)
	require.NoError(t, db.MigrateUp(migrations))

	status, err := db.GetMigrationStatus(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), status["current_version"])
	assert.Equal(t, false, status["dirty"])
	assert.Equal(t, true, status["schema_migrations_exists"])
}
