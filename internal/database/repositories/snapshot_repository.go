package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

var (
	// ErrTableNotAllowed is returned for tables outside models.SnapshotTables
	ErrTableNotAllowed = errors.New("table not allowed")
	// ErrDatabaseOperation wraps driver errors
	ErrDatabaseOperation = errors.New("database operation failed")
)

const insertBatchSize = 100

// SnapshotRepository stores the rows of the latest regeneration
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

// Replace deletes every snapshot row and inserts the given snapshot in one transaction
func (r *SnapshotRepository) Replace(ctx context.Context, snapshot models.Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.ServiceInfo{},
			&models.PortMapping{},
			&models.HostNetworking{},
			&models.ContainerPort{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
			}
		}

		if err := createAll(tx, snapshot.Services); err != nil {
			return err
		}
		if err := createAll(tx, snapshot.PortMappings); err != nil {
			return err
		}
		if err := createAll(tx, snapshot.HostNetworking); err != nil {
			return err
		}
		return createAll(tx, snapshot.ContainerPorts)
	})
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

// FetchTable returns every row of an allowed snapshot table ordered by id
func (r *SnapshotRepository) FetchTable(ctx context.Context, table string) ([]map[string]interface{}, error) {
	if !slices.Contains(models.SnapshotTables, table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}

	rows := []map[string]interface{}{}
	if err := r.db.WithContext(ctx).Table(table).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return rows, nil
}

// Counts returns the number of rows in each snapshot table
func (r *SnapshotRepository) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(models.SnapshotTables))
	for _, table := range models.SnapshotTables {
		var n int64
		if err := r.db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}
		counts[table] = n
	}
	return counts, nil
}
