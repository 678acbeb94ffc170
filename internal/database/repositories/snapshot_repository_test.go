package repositories

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/database"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

func setupSnapshotRepository(t *testing.T) *SnapshotRepository {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "docker.db")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.Open(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotRepository(db.DB())
}

func intPtr(v int) *int { return &v }

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		Services: []models.ServiceInfo{
			{ServiceName: "gluetun", ExternalPort: intPtr(8080), InternalPort: intPtr(8080), MappingSource: "DIRECT"},
			{ServiceName: "qbittorrent", ExternalPort: intPtr(8080), InternalPort: intPtr(8080), HasPortMapping: true, MappingSource: "VPN_SHARED"},
			{ServiceName: "redis", InternalPort: intPtr(6379), MappingSource: "DIRECT", MappedApp: "Redis"},
		},
		PortMappings:   []models.PortMapping{{ExternalPort: 8080, MappingValues: "qbittorrent"}},
		HostNetworking: []models.HostNetworking{{ServiceName: "plex"}},
		ContainerPorts: []models.ContainerPort{
			{ContainerName: "gluetun", InternalPort: "8080", ExternalPort: "8080", Protocol: "tcp"},
		},
	}
}

func TestSnapshotRepository_Replace(t *testing.T) {
	repo := setupSnapshotRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, testSnapshot()))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		models.TableServiceInfo:    3,
		models.TablePortMappings:   1,
		models.TableHostNetworking: 1,
		models.TableContainerPorts: 1,
	}, counts)

	rows, err := repo.FetchTable(ctx, models.TableServiceInfo)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "gluetun", rows[0]["service_name"])
	assert.Equal(t, "qbittorrent", rows[1]["service_name"])
	assert.Nil(t, rows[2]["external_port"])

	// a second run replaces instead of appending
	next := models.Snapshot{Services: []models.ServiceInfo{{ServiceName: "nginx", ExternalPort: intPtr(80), InternalPort: intPtr(80), MappingSource: "DIRECT", MappedApp: "HTTP"}}}
	require.NoError(t, repo.Replace(ctx, next))

	counts, err = repo.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.TableServiceInfo])
	assert.EqualValues(t, 0, counts[models.TablePortMappings])
	assert.EqualValues(t, 0, counts[models.TableContainerPorts])

	rows, err = repo.FetchTable(ctx, models.TableServiceInfo)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "nginx", rows[0]["service_name"])
}

func TestSnapshotRepository_FetchTable_NotAllowed(t *testing.T) {
	repo := NewSnapshotRepository(nil)

	_, err := repo.FetchTable(context.Background(), "schema_migrations")
	assert.ErrorIs(t, err, ErrTableNotAllowed)

	_, err = repo.FetchTable(context.Background(), "service_info; DROP TABLE service_info")
	assert.ErrorIs(t, err, ErrTableNotAllowed)
}

func TestSnapshotRepository_FetchTable_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)
	repo := NewSnapshotRepository(gormDB)

	t.Run("Rows", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "external_port", "mapping_values"}).
			AddRow(1, 1194, "my_service2").
			AddRow(2, 51820, "my_service1")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "port_mappings" ORDER BY id`)).WillReturnRows(rows)

		got, err := repo.FetchTable(context.Background(), models.TablePortMappings)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "my_service1", got[1]["mapping_values"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "host_networking" ORDER BY id`)).WillReturnError(assert.AnError)

		_, err := repo.FetchTable(context.Background(), models.TableHostNetworking)
		assert.ErrorIs(t, err, ErrDatabaseOperation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
