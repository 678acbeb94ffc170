package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
)

// Database represents the interface for database operations
type Database interface {
	// DB returns the underlying database instance
	DB() *gorm.DB

	// Connect establishes a connection to the database
	Connect() error

	// Close closes the database connection
	Close() error

	// Ping checks if the database is reachable
	Ping(ctx context.Context) error

	// Transaction executes the given function within a transaction
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Factory defines interface for creating database instances
type Factory interface {
	// Create returns a database instance based on the configuration and logger
	Create(cfg *config.Config, log *logrus.Logger) (Database, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct{}

// NewFactory creates a new database factory
func NewFactory() Factory {
	return &DefaultFactory{}
}

// Create creates a new database instance based on the configuration and logger
func (f *DefaultFactory) Create(cfg *config.Config, log *logrus.Logger) (Database, error) {
	switch cfg.Database.Type {
	case "postgres":
		return NewPostgresDB(cfg, log), nil
	case "sqlite", "":
		return NewSQLiteDB(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// Open creates, connects and migrates the snapshot database described by cfg
func Open(cfg *config.Config, log *logrus.Logger) (Database, error) {
	return OpenWith(NewFactory(), cfg, log)
}

// OpenWith is Open with an explicit factory
func OpenWith(factory Factory, cfg *config.Config, log *logrus.Logger) (Database, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := factory.Create(cfg, log)
	if err != nil {
		return nil, err
	}

	log.WithField("type", cfg.Database.Type).Debug("Connecting to snapshot database")
	if err := db.Connect(); err != nil {
		return nil, err
	}

	migrator := NewMigrator(db.DB(), MigrateOptions{Logger: log.WithField("component", "migrator")})
	migrator.RegisterAllMigrations()
	if err := migrator.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate snapshot database: %w", err)
	}

	return db, nil
}

// gormDatabase holds what the SQLite and PostgreSQL implementations share once connected
type gormDatabase struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance
func (g *gormDatabase) DB() *gorm.DB {
	return g.db
}

// Close closes the database connection
func (g *gormDatabase) Close() error {
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database is reachable
func (g *gormDatabase) Ping(ctx context.Context) error {
	if g.db == nil {
		return ErrNotConnected
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction executes the given function within a transaction
func (g *gormDatabase) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if g.db == nil {
		return ErrNotConnected
	}
	return g.db.WithContext(ctx).Transaction(fn)
}
