package database

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	gormDatabase
	config *config.Config
	log    *logrus.Logger
}

// NewPostgresDB creates a new PostgreSQL database instance
func NewPostgresDB(cfg *config.Config, log *logrus.Logger) *PostgresDB {
	return &PostgresDB{
		config: cfg,
		log:    log,
	}
}

// DSN builds the libpq connection string
func (p *PostgresDB) DSN() string {
	cfg := p.config.Database
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		getSslMode(cfg.SSLMode),
	)
}

// Connect establishes a connection to the PostgreSQL database
func (p *PostgresDB) Connect() error {
	return p.connect(postgres.Open(p.DSN()))
}

func (p *PostgresDB) connect(dialector gorm.Dialector) error {
	cfg := p.config.Database

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(p.log, p.config.Logging.Level),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	p.db = db
	return nil
}

func getSslMode(mode string) string {
	switch strings.ToLower(mode) {
	case "disable", "require", "verify-ca", "verify-full":
		return strings.ToLower(mode)
	default:
		return "disable"
	}
}
