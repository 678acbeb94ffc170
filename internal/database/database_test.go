package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sqliteConfig(path string) *config.Config {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = path
	return cfg
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	db, err := factory.Create(sqliteConfig("x.db"), quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteDB{}, db)

	cfg := testPostgresConfig()
	db, err = factory.Create(cfg, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &PostgresDB{}, db)

	cfg.Database.Type = "mysql"
	_, err = factory.Create(cfg, quietLogger())
	assert.EqualError(t, err, "unsupported database type: mysql")
}

func TestSQLiteDB_Connect(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "docker.db")
	db := NewSQLiteDB(sqliteConfig(dbPath), quietLogger())

	assert.ErrorIs(t, db.Ping(context.Background()), ErrNotConnected)

	require.NoError(t, db.Connect())
	t.Cleanup(func() { _ = db.Close() })

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, dbPath, db.Path())
}

func TestSQLiteDB_DefaultPath(t *testing.T) {
	db := NewSQLiteDB(sqliteConfig(""), nil)
	assert.Equal(t, DefaultSQLitePath, db.Path())
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "docker.db")

	db, err := Open(sqliteConfig(dbPath), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range models.SnapshotTables {
		assert.True(t, db.DB().Migrator().HasTable(table), table)
	}

	migrator := NewMigrator(db.DB(), MigrateOptions{})
	migrator.RegisterAllMigrations()
	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// opening again is a no-op migration
	require.NoError(t, db.Close())
	db, err = Open(sqliteConfig(dbPath), quietLogger())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

type failingFactory struct{ err error }

func (f failingFactory) Create(*config.Config, *logrus.Logger) (Database, error) {
	return nil, f.err
}

func TestOpenWith_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := OpenWith(failingFactory{err: boom}, sqliteConfig("unused.db"), nil)
	assert.ErrorIs(t, err, boom)
}
