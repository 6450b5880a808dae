package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver for postgres:// URLs
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// migration source
	"go.opentelemetry.io/otel/attribute"
)

// RunMigrations applies schema.sql and then any pending golang-migrate migrations
func (dm *Manager) RunMigrations(ctx context.Context, db *sql.DB, cfg config.DatabaseConfig) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "postgresql"),
	)
	defer observability.FinishSpan(span, &err)
	dm.logger.Info(ctx, "Starting database migrations")

	if err := dm.runApplicationSchema(ctx, db); err != nil {
		return contextutils.WrapError(err, "failed to run application schema")
	}
	dm.logger.Info(ctx, "Application schema applied")

	migrationsPath := cfg.MigrationsPath
	if migrationsPath == "" {
		migrationsPath, err = FindUpward("migrations")
		if err != nil {
			return err
		}
	}

	if err := dm.runGolangMigrate(ctx, cfg.URL, migrationsPath); err != nil {
		return contextutils.WrapError(err, "failed to run golang-migrate migrations")
	}

	dm.logger.Info(ctx, "Database migrations completed")
	return nil
}

// runGolangMigrate runs the versioned migrations under migrationsPath
func (dm *Manager) runGolangMigrate(ctx context.Context, databaseURL, migrationsPath string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "runGolangMigrate",
		attribute.String("migration.path", migrationsPath),
	)
	defer observability.FinishSpan(span, &err)

	count, err := countUpMigrations(migrationsPath)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("migration.files.count", count))
	if count == 0 {
		dm.logger.Info(ctx, "No migration files found, skipping golang-migrate", map[string]interface{}{"path": migrationsPath})
		return nil
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+filepath.ToSlash(absPath), databaseURL)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			dm.logger.Error(ctx, "Error closing migration", errors.Join(srcErr, dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "golang-migrate up failed")
	}

	dm.logger.Info(ctx, "Migrations applied", map[string]interface{}{"files": count})
	return nil
}

// countUpMigrations returns how many *.up.sql files live in dir
func countUpMigrations(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			count++
		}
	}
	return count, nil
}
