// Package main runs the siteworks alert reminder worker and its admin API.
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
	"siteworks/internal/database"
	"siteworks/internal/handlers"
	"siteworks/internal/middleware"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	"siteworks/internal/version"
	"siteworks/internal/worker"

	"github.com/gin-gonic/gin"
)

const serviceName = "siteworks-worker"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	tel, err := observability.SetupObservability(&cfg.OpenTelemetry, serviceName, cfg.Server.LogLevel)
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

	logger.Info(ctx, "Starting reminder worker", map[string]interface{}{
		"port":     cfg.Worker.Port,
		"interval": cfg.Worker.Interval.String(),
	})

	// schema migrations are owned by the backend
	db, err := database.NewManager(logger).Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error(ctx, "Database unavailable", err, nil)
		return err
	}
	defer db.Close()

	metrics, err := observability.NewReportMetrics()
	if err != nil {
		logger.Warn(ctx, "Report metrics unavailable", map[string]interface{}{"error": err.Error()})
	}

	users := services.NewUserService(db, cfg, logger)
	mail := services.CreateEmailService(cfg, logger)
	if !mail.IsEnabled() {
		logger.Warn(ctx, "Email is disabled, due alerts stay unreminded until it is enabled", nil)
	}
	notifications := services.NewNotificationServiceWithLogger(db, cfg, mail, metrics, logger)
	reminders := worker.NewWorker(services.NewAlertServiceWithLogger(db, logger), notifications, "default", cfg, logger)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go reminders.Start(workerCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.Worker.Port,
		Handler:           newRouter(cfg, reminders, users, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutdown signal received", nil)
	case err := <-serveErr:
		logger.Error(ctx, "Admin server failed", err, map[string]interface{}{"port": cfg.Worker.Port})
		return err
	}

	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := notifications.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Pending notifications were not flushed", map[string]interface{}{"error": err.Error()})
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "Worker stopped", nil)
	return nil
}

// newRouter serves health, version and the admin-only worker controls.
// Admin sessions come from the backend through the shared cookie secret.
func newRouter(cfg *config.Config, w *worker.Worker, users middleware.AdminChecker, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, cfg.Server.CircuitBreaker))
	router.Use(middleware.RequestID())
	router.Use(handlers.RequestLogger(logger))
	router.Use(observability.GinMiddlewareWithErrorHandling(serviceName)...)
	router.Use(handlers.NewSessionMiddleware(cfg))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worker"})
	}
	router.GET("/health", health)

	v1 := router.Group("/v1")
	v1.GET("/health", health)
	v1.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Info("worker"))
	})

	admin := handlers.NewWorkerAdminHandlerWithLogger(w, logger)
	controls := v1.Group("/admin/worker", middleware.RequireAdmin(users))
	controls.GET("/details", admin.GetWorkerDetails)
	controls.GET("/logs", admin.GetActivityLogs)
	controls.POST("/pause", admin.PauseWorker)
	controls.POST("/resume", admin.ResumeWorker)
	controls.POST("/trigger", admin.TriggerWorkerRun)

	routes := handlers.NewRouteListingHandler("worker")
	routes.CollectRoutes(router)
	router.GET("/", routes.GetRouteListingJSON)
	return router
}
