package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/apitokens/internal/database"
	tokenRepository "github.com/allisson/apitokens/internal/token/repository"
)

// RunMigrations brings the token schema up to date for the configured driver.
//
// PostgreSQL and MySQL apply the versioned files under migrations/. SQLite
// applies the embedded schema, which is idempotent.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
	)

	if dbDriver == database.DriverSQLite {
		return runSQLiteSchema(logger, dbConnectionString)
	}

	// Determine migration path based on driver
	migrationsPath := "file://migrations/postgresql"
	if dbDriver == database.DriverMySQL {
		migrationsPath = "file://migrations/mysql"
	}

	m, err := migrate.New(migrationsPath, dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

func runSQLiteSchema(logger *slog.Logger, dbConnectionString string) error {
	db, err := database.Connect(database.Config{
		Driver:           database.DriverSQLite,
		ConnectionString: dbConnectionString,
	})
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := tokenRepository.EnsureSQLiteSchema(context.Background(), db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
