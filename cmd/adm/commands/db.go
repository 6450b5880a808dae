// Package commands provides CLI commands for the admin tool
package commands

import (
	"database/sql"
	"fmt"

	"siteworks/internal/config"
	"siteworks/internal/database"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/spf13/cobra"
)

// statsTables are counted by "db stats", in display order
var statsTables = []string{"users", "projects", "reports", "photos", "checklists", "contacts", "alerts", "approval_history"}

// DatabaseCommands returns the database management commands
func DatabaseCommands(db *sql.DB, dbManager *database.Manager, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  stats   - Show row counts and reports per status
  migrate - Apply the schema and pending migrations`,
	}

	dbCmd.AddCommand(statsCmd(db))
	dbCmd.AddCommand(migrateCmd(db, dbManager, cfg, logger))

	return dbCmd
}

func statsCmd(db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(out, getDatabaseInfo(ctx, db))

			for _, table := range statsTables {
				var n int
				// table names come from statsTables only
				if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
					return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count %s: %v", table, err)
				}
				_, _ = fmt.Fprintf(out, "%-18s %d\n", table, n)
			}

			rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status ORDER BY status`)
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count reports by status: %v", err)
			}
			defer func() { _ = rows.Close() }()

			for rows.Next() {
				var status string
				var n int
				if err := rows.Scan(&status, &n); err != nil {
					return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan report status: %v", err)
				}
				_, _ = fmt.Fprintf(out, "reports.%-10s %d\n", status, n)
			}
			return rows.Err()
		},
	}
}

func migrateCmd(db *sql.DB, dbManager *database.Manager, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := dbManager.RunMigrations(ctx, db, cfg.Database); err != nil {
				logger.Error(ctx, "Migrations failed", err, nil)
				return contextutils.WrapError(err, "migrations failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		},
	}
}
