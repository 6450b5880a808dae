// Package database opens the traced Postgres pool and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"sync"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	_ "github.com/lib/pq" // postgres driver wrapped by otelsql
	"go.nhat.io/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	fallbackDBName      = "siteworks"
)

// Manager opens instrumented connections and applies the schema
type Manager struct {
	logger *observability.Logger
}

func NewManager(logger *observability.Logger) *Manager {
	return &Manager{logger: logger}
}

var tracedPostgres = sync.OnceValues(func() (string, error) {
	return otelsql.Register("postgres",
		otelsql.TraceQueryWithArgs(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
})

// DefaultDatabaseConfig is the pool used when config leaves it unset.
// TEST_DATABASE_URL, when present, supplies the URL.
func DefaultDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:             os.Getenv("TEST_DATABASE_URL"),
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}
}

func withPoolDefaults(cfg config.DatabaseConfig) config.DatabaseConfig {
	def := DefaultDatabaseConfig()
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = def.MaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = def.ConnMaxLifetime
	}
	return cfg
}

// Connect opens and pings the pool without touching the schema
func (dm *Manager) Connect(ctx context.Context, cfg config.DatabaseConfig) (db *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "connect",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseConnection, "database url is not configured")
	}
	cfg = withPoolDefaults(cfg)
	span.SetAttributes(
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
	)

	driver, err := tracedPostgres()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to register otelsql driver")
	}
	db, err = sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database connection")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		dm.closeQuietly(ctx, db)
		return nil, contextutils.WrapError(err, "failed to ping database")
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"db_name":           extractDatabaseName(cfg.URL),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})
	return db, nil
}

// ConnectAndMigrate is Connect followed by RunMigrations
func (dm *Manager) ConnectAndMigrate(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := dm.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := dm.RunMigrations(ctx, db, cfg); err != nil {
		dm.closeQuietly(ctx, db)
		return nil, err
	}
	return db, nil
}

func (dm *Manager) closeQuietly(ctx context.Context, db *sql.DB) {
	if err := db.Close(); err != nil && dm.logger != nil {
		dm.logger.Error(ctx, "Failed to close database", err)
	}
}

// extractDatabaseName reads the database name from a URL or key=value DSN
func extractDatabaseName(dsn string) string {
	if u, err := url.Parse(dsn); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			return name
		}
	}
	for _, part := range strings.Fields(dsn) {
		if name, ok := strings.CutPrefix(part, "dbname="); ok {
			return name
		}
	}
	return fallbackDBName
}
