// Package main runs the siteworks backend API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/di"
	"siteworks/internal/handlers"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// Application couples the HTTP server with the container that owns its services
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// lookup resolves one service and collects the failure instead of returning early
func lookup[T any](get func() (T, error), name string, errs *[]error) T {
	svc, err := get()
	if err != nil {
		*errs = append(*errs, contextutils.WrapErrorf(err, "resolve %s service", name))
	}
	return svc
}

// NewApplication builds the router from the container's services
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	var errs []error
	svc := handlers.Services{
		Users:      lookup(container.GetUserService, "user", &errs),
		Projects:   lookup(container.GetProjectService, "project", &errs),
		Reports:    lookup(container.GetReportService, "report", &errs),
		Photos:     lookup(container.GetPhotoService, "photo", &errs),
		Checklists: lookup(container.GetChecklistService, "checklist", &errs),
		Contacts:   lookup(container.GetContactService, "contact", &errs),
		Alerts:     lookup(container.GetAlertService, "alert", &errs),
		Dashboard:  lookup(container.GetDashboardService, "dashboard", &errs),
		Documents:  lookup(container.GetDocumentService, "document", &errs),
		Exports:    lookup(container.GetExportService, "export", &errs),
		Events:     container.GetEventHub(),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	router := handlers.NewRouter(container.GetConfig(), svc, container.GetLogger())
	return &Application{container: container, router: router}, nil
}

// Run serves HTTP until Shutdown is called
func (a *Application) Run(port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, then stops the container's services
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return contextutils.WrapError(err, "http server shutdown failed")
		}
	}
	return a.container.Shutdown(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	tel, err := observability.SetupObservability(&cfg.OpenTelemetry, cfg.OpenTelemetry.ServiceName, cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	logger := tel.Logger
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			logger.Warn(flushCtx, "Telemetry shutdown incomplete", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.Info(ctx, "Starting backend", map[string]interface{}{"port": cfg.Server.Port})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		return err
	}
	if err := container.EnsureAdminUser(ctx); err != nil {
		logger.Error(ctx, "Failed to seed the admin account", err, map[string]interface{}{"admin_email": cfg.Server.AdminEmail})
		return err
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to assemble the application", err, nil)
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- app.Run(cfg.Server.Port) }()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutdown signal received", nil)
	case err := <-serveErr:
		if err != nil {
			logger.Error(ctx, "HTTP server stopped", err, nil)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Shutdown incomplete", err, nil)
		return err
	}
	logger.Info(shutdownCtx, "Backend stopped", nil)
	return nil
}
