package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

// Migration represents a database migration
type Migration struct {
	// Version is the migration version (e.g., 1, 2, 3, ...)
	Version int

	// Name is a descriptive name for the migration
	Name string

	// Up performs the migration
	Up func(tx *gorm.DB) error

	// Down rolls back the migration
	Down func(tx *gorm.DB) error
}

// MigrationRecord represents a record of a migration in the database
type MigrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   int    `gorm:"uniqueIndex"`
	Name      string `gorm:"size:255"`
	AppliedAt time.Time
}

// MigrationStatus describes one registered migration
type MigrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// MigrateOptions provides options for migration operations
type MigrateOptions struct {
	// DryRun logs pending migrations without executing them
	DryRun bool

	// Force allows rolling back applied migrations
	Force bool

	// Logger receives progress messages; nil disables them
	Logger logrus.FieldLogger
}

// Migrator manages database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
	options    MigrateOptions
}

// NewMigrator creates a new migrator
func NewMigrator(db *gorm.DB, options MigrateOptions) *Migrator {
	return &Migrator{
		db:      db,
		options: options,
	}
}

// AddMigrations adds migrations to the migrator
func (m *Migrator) AddMigrations(migrations ...*Migration) {
	m.migrations = append(m.migrations, migrations...)
}

// RegisterAllMigrations registers the snapshot schema migrations
func (m *Migrator) RegisterAllMigrations() {
	m.AddMigrations(
		&Migration{
			Version: 1,
			Name:    "create_snapshot_tables",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.ServiceInfo{},
					&models.PortMapping{},
					&models.HostNetworking{},
					&models.ContainerPort{},
				)
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.ContainerPort{},
					&models.HostNetworking{},
					&models.PortMapping{},
					&models.ServiceInfo{},
				)
			},
		},
		&Migration{
			Version: 2,
			Name:    "index_container_ports_container_name",
			Up: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_container_ports_container_name ON container_ports (container_name)").Error
			},
			Down: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_container_ports_container_name").Error
			},
		},
	)
}

// MigrateUp migrates the database to the latest version
func (m *Migrator) MigrateUp() error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration records table: %w", err)
	}

	currentVersion, err := m.GetCurrentVersion()
	if err != nil {
		return err
	}

	m.sortMigrations()

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.log("Migrating to version %d: %s", migration.Version, migration.Name)
		if m.options.DryRun {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration up error (version %d): %w", migration.Version, err)
			}

			record := MigrationRecord{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now(),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to record migration (version %d): %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	latestVersion, err := m.GetCurrentVersion()
	if err != nil {
		return err
	}
	m.log("Database is at version %d", latestVersion)
	return nil
}

// MigrateDown rolls back the database to a specific version
func (m *Migrator) MigrateDown(targetVersion int) error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration records table: %w", err)
	}

	currentVersion, err := m.GetCurrentVersion()
	if err != nil {
		return err
	}

	if !m.options.Force && targetVersion < currentVersion {
		return fmt.Errorf("potentially destructive operation, use force option to proceed")
	}

	m.sortMigrationsDesc()

	for _, migration := range m.migrations {
		if migration.Version <= targetVersion || migration.Version > currentVersion {
			continue
		}

		m.log("Rolling back version %d: %s", migration.Version, migration.Name)
		if m.options.DryRun {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("migration down error (version %d): %w", migration.Version, err)
			}
			if err := tx.Where("version = ?", migration.Version).Delete(&MigrationRecord{}).Error; err != nil {
				return fmt.Errorf("failed to remove migration record (version %d): %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// GetCurrentVersion returns the current migration version
func (m *Migrator) GetCurrentVersion() (int, error) {
	if !m.db.Migrator().HasTable(&MigrationRecord{}) {
		return 0, nil
	}

	var record MigrationRecord
	err := m.db.Order("version desc").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}

	return record.Version, nil
}

// GetMigrationStatus returns the status of all registered migrations
func (m *Migrator) GetMigrationStatus() ([]MigrationStatus, error) {
	var records []MigrationRecord
	if m.db.Migrator().HasTable(&MigrationRecord{}) {
		if err := m.db.Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to get migration records: %w", err)
		}
	}

	applied := make(map[int]MigrationRecord, len(records))
	for _, r := range records {
		applied[r.Version] = r
	}

	m.sortMigrations()
	status := make([]MigrationStatus, 0, len(m.migrations))
	for _, migration := range m.migrations {
		entry := MigrationStatus{Version: migration.Version, Name: migration.Name}
		if r, ok := applied[migration.Version]; ok {
			at := r.AppliedAt
			entry.Applied = true
			entry.AppliedAt = &at
		}
		status = append(status, entry)
	}
	return status, nil
}

func (m *Migrator) sortMigrations() {
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

func (m *Migrator) sortMigrationsDesc() {
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version > m.migrations[j].Version
	})
}

func (m *Migrator) log(format string, args ...interface{}) {
	if m.options.Logger != nil {
		m.options.Logger.Infof(format, args...)
	}
}
