// Package main is the siteworks administration CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"siteworks/cmd/adm/commands"
	"siteworks/internal/config"
	"siteworks/internal/database"
	"siteworks/internal/di"
	"siteworks/internal/observability"

	"github.com/spf13/cobra"
)

// configCandidates are tried in order when SITEWORKS_CONFIG_FILE is unset
var configCandidates = []string{"config.yaml", "../config.yaml", "../../config.yaml"}

func locateConfig() error {
	if os.Getenv(config.ConfigFileEnv) != "" {
		return nil
	}
	for _, path := range configCandidates {
		if _, err := os.Stat(path); err == nil {
			return os.Setenv(config.ConfigFileEnv, path)
		}
	}
	return nil
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := locateConfig(); err != nil {
		return fmt.Errorf("set %s: %w", config.ConfigFileEnv, err)
	}
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// one-shot commands never export telemetry
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false
	tel, err := observability.SetupObservability(&cfg.OpenTelemetry, "siteworks-admin", "error")
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	logger := tel.Logger

	dbManager := database.NewManager(logger)
	db, err := dbManager.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", commands.MaskDatabaseURL(cfg.Database.URL), err)
	}

	container := di.NewServiceContainer(cfg, logger)
	if err := container.InitializeWithDB(ctx, db); err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() { _ = container.Shutdown(context.Background()) }()

	users, err := container.GetUserService()
	if err != nil {
		return err
	}
	documents, err := container.GetDocumentService()
	if err != nil {
		return err
	}
	exports, err := container.GetExportService()
	if err != nil {
		return err
	}

	root := &cobra.Command{
		Use:           "adm",
		Short:         "Siteworks administration tool",
		Long:          "Manages users, the database schema and report exports without going through the HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		commands.UserCommands(users, logger),
		commands.DatabaseCommands(db, dbManager, cfg, logger),
		commands.ReportCommands(documents, exports, logger),
	)
	return root.ExecuteContext(ctx)
}
