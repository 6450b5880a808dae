//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"siteworks/internal/config"
	"siteworks/internal/database"
	"siteworks/internal/observability"

	"github.com/stretchr/testify/require"
)

// integrationTables lists every application table, children first
var integrationTables = []string{
	"approval_history", "photos", "alerts", "reports", "contacts",
	"checklists", "projects", "sent_notifications", "users",
}

// SharedTestDBSetup opens TEST_DATABASE_URL, applies migrations and empties
// every table. The handle is closed when the test ends.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	manager := database.NewManager(observability.NewLogger(nil))
	db, err := manager.ConnectAndMigrate(context.Background(), config.DatabaseConfig{URL: databaseURL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	truncateTables(t, db)
	return db
}

func truncateTables(t *testing.T, db *sql.DB) {
	t.Helper()
	query := "TRUNCATE TABLE " + strings.Join(integrationTables, ", ") + " RESTART IDENTITY CASCADE"
	_, err := db.ExecContext(context.Background(), query)
	require.NoError(t, err, "truncate integration tables")
}
