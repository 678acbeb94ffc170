package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
)

// ErrNotConnected is returned when the database is used before Connect
var ErrNotConnected = errors.New("database connection not established")

// DefaultSQLitePath is used when database.sqlite.path is empty
const DefaultSQLitePath = "data/docker.db"

// SQLiteDB implements the Database interface for SQLite
type SQLiteDB struct {
	gormDatabase
	config *config.Config
	log    *logrus.Logger
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(cfg *config.Config, log *logrus.Logger) *SQLiteDB {
	return &SQLiteDB{
		config: cfg,
		log:    log,
	}
}

// Path returns the database file the instance connects to
func (s *SQLiteDB) Path() string {
	if s.config.Database.SQLite.Path == "" {
		return DefaultSQLitePath
	}
	return s.config.Database.SQLite.Path
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	databasePath := s.Path()

	if err := ensureDirectoryExists(databasePath); err != nil {
		return fmt.Errorf("failed to create directory for SQLite database: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: newGormLogger(s.log, s.config.Logging.Level),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if err := setPragmas(db); err != nil && s.log != nil {
		s.log.WithError(err).Warn("Failed to set SQLite pragmas")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	// The snapshot writer and the API readers share one connection.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	if s.config.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(s.config.Database.ConnMaxLifetime)
	}
	if s.config.Database.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(s.config.Database.ConnMaxIdleTime)
	}

	s.db = db
	return nil
}

// ensureDirectoryExists ensures that the directory for the database file exists
func ensureDirectoryExists(databasePath string) error {
	dir := filepath.Dir(databasePath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func setPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("failed to set pragma '%s': %w", pragma, err)
		}
	}
	return nil
}
