// Package integration runs the invoicing stack against a real PostgreSQL
// database started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/garage/backoffice/internal/infrastructure/migration"
	"github.com/garage/backoffice/internal/infrastructure/persistence"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	// Shared container for all tests in the package
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated PostgreSQL database
type TestDB struct {
	DB  *gorm.DB
	DSN string
	t   *testing.T
}

// NewTestDB returns a connection to the shared, migrated container. Tests
// isolate their data by using a fresh tenant ID rather than truncating.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()
	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("garage_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		runMigrations(t, dsn)
		sharedContainer = container
		sharedContainerDSN = dsn
	}

	database, err := persistence.NewDatabaseFromDialector(gormpostgres.Open(sharedContainerDSN))
	require.NoError(t, err, "Failed to connect to database")
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	t.Cleanup(func() {
		_ = database.Close()
	})
	return &TestDB{DB: database.DB, DSN: sharedContainerDSN, t: t}
}

// runMigrations applies the embedded schema; the migrator owns its connection
func runMigrations(t *testing.T, dsn string) {
	t.Helper()

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	defer func() { _ = m.Close() }()
	require.NoError(t, m.Up(), "Failed to run migrations")
}

// CleanupSharedContainer terminates the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

// CreateClient inserts a directory client for tenantID
func (tdb *TestDB) CreateClient(tenantID uuid.UUID, name string) uuid.UUID {
	tdb.t.Helper()

	client := &models.ClientModel{
		TenantID: tenantID,
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", tenantID.String()[:8]),
		Phone:    "+33 4 78 00 00 00",
		Address:  "12 avenue Berthelot, Lyon",
	}
	client.ID = uuid.New()
	require.NoError(tdb.t, tdb.DB.Create(client).Error, "Failed to create test client")
	return client.ID
}

// CreateVehicle inserts a vehicle owned by clientID
func (tdb *TestDB) CreateVehicle(tenantID, clientID uuid.UUID) uuid.UUID {
	tdb.t.Helper()

	vehicle := &models.VehicleModel{
		TenantID:    tenantID,
		ClientID:    clientID,
		Make:        "Citroen",
		Model:       "C3",
		PlateNumber: "GH-456-IJ",
		VIN:         "VF7SXHMZ6FT000001",
	}
	vehicle.ID = uuid.New()
	require.NoError(tdb.t, tdb.DB.Create(vehicle).Error, "Failed to create test vehicle")
	return vehicle.ID
}
