package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// MigrationsTable tracks applied schema versions.
const MigrationsTable = "plantsync_schema_migrations"

// RunMigrations applies pending migrations from migrationsPath for the given
// storage driver ("postgres" or "mssql"). Only pending migrations are executed.
func RunMigrations(db *sql.DB, driver, migrationsPath string, logger *zap.Logger) error {
	var instance migratedb.Driver
	var err error
	switch driver {
	case "postgres":
		instance, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mssql":
		instance, err = sqlserver.WithInstance(db, &sqlserver.Config{MigrationsTable: MigrationsTable})
	default:
		return fmt.Errorf("no migration driver for %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		driver, instance)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)", zap.String("driver", driver))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully",
		zap.String("driver", driver),
		zap.Uint("version", newVersion))
	return nil
}
