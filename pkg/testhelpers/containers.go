// Package testhelpers starts the databases integration tests run against.
package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/database"
)

// PostgresImage is the image used for PostgreSQL integration tests.
const PostgresImage = "postgres:16-alpine"

// Schema is the schema the migrations create.
const Schema = "gamma"

// TestDB holds a shared PostgreSQL container with the schema migrated.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
	Host      string
	Port      int
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

// MigrationsPath returns the absolute path of the migrations for a driver.
func MigrationsPath(driver string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", driver)
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "plants",
			"POSTGRES_USER":     "plantsync",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := database.PostgresURL(host, port.Int(), "plantsync", "test_password", "plants", "disable")

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	sqlDB := db.SQL()
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, "postgres", MigrationsPath("postgres"), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
		Host:      host,
		Port:      port.Int(),
	}, nil
}

// Reset empties every table and seeds the static lookups: continents Europe
// and America, countries GB and US.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := tdb.DB.Exec(ctx, `TRUNCATE gamma.recordings, gamma.plants, gamma.botanists,
		gamma.plant_species, gamma.origins, gamma.regions, gamma.countries, gamma.continents
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	_, err = tdb.DB.Exec(ctx, `
		INSERT INTO gamma.continents (continent_name) VALUES ('Europe'), ('America');
		INSERT INTO gamma.countries (country_code) VALUES ('GB'), ('US');`)
	if err != nil {
		t.Fatalf("failed to seed lookup tables: %v", err)
	}
}
