package database

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

func connectedSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db := NewSQLiteDB(sqliteConfig(filepath.Join(t.TempDir(), "migrations.db")), quietLogger())
	require.NoError(t, db.Connect())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB()
}

func TestMigrator_MigrateUp(t *testing.T) {
	db := connectedSQLite(t)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	migrator := NewMigrator(db, MigrateOptions{Logger: logger})
	migrator.RegisterAllMigrations()

	status, err := migrator.GetMigrationStatus()
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.False(t, status[0].Applied)

	require.NoError(t, migrator.MigrateUp())
	assert.Contains(t, buf.String(), "Migrating to version 1: create_snapshot_tables")
	assert.Contains(t, buf.String(), "Database is at version 2")

	status, err = migrator.GetMigrationStatus()
	require.NoError(t, err)
	for _, s := range status {
		assert.True(t, s.Applied, s.Name)
		assert.NotNil(t, s.AppliedAt)
	}
	assert.True(t, db.Migrator().HasIndex(&models.ContainerPort{}, "idx_container_ports_container_name"))
}

func TestMigrator_DryRun(t *testing.T) {
	db := connectedSQLite(t)

	migrator := NewMigrator(db, MigrateOptions{DryRun: true})
	migrator.RegisterAllMigrations()
	require.NoError(t, migrator.MigrateUp())

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.False(t, db.Migrator().HasTable(models.TableServiceInfo))
}

func TestMigrator_MigrateDown(t *testing.T) {
	db := connectedSQLite(t)

	migrator := NewMigrator(db, MigrateOptions{})
	migrator.RegisterAllMigrations()
	require.NoError(t, migrator.MigrateUp())

	err := migrator.MigrateDown(0)
	assert.EqualError(t, err, "potentially destructive operation, use force option to proceed")

	forced := NewMigrator(db, MigrateOptions{Force: true})
	forced.RegisterAllMigrations()
	require.NoError(t, forced.MigrateDown(1))
	version, err := forced.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.True(t, db.Migrator().HasTable(models.TableServiceInfo))

	require.NoError(t, forced.MigrateDown(0))
	for _, table := range models.SnapshotTables {
		assert.False(t, db.Migrator().HasTable(table), table)
	}
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := connectedSQLite(t)

	migrator := NewMigrator(db, MigrateOptions{})
	migrator.AddMigrations(&Migration{
		Version: 1,
		Name:    "broken",
		Up:      func(*gorm.DB) error { return errors.New("bad ddl") },
	})

	err := migrator.MigrateUp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration up error (version 1)")

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}
