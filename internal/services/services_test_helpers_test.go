package services

import (
	"database/sql"
	"testing"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var (
	userColumns   = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}
	fixedTestTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
)

func newTestLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{IsTest: true}
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.DocumentDir = t.TempDir()
	cfg.ApplyDefaults()
	return cfg
}

// newMockDB returns a sqlmock database whose expectations are verified on cleanup
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return db, mock
}
