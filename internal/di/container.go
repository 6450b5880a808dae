// Package di builds the service graph shared by the backend binaries and
// owns its startup and shutdown order.
package di

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"siteworks/internal/config"
	"siteworks/internal/database"
	"siteworks/internal/events"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	"siteworks/internal/services/mailer"
	contextutils "siteworks/internal/utils"
)

// Service names used as container keys
const (
	serviceUser         = "user"
	serviceProject      = "project"
	serviceReport       = "report"
	servicePhoto        = "photo"
	serviceChecklist    = "checklist"
	serviceContact      = "contact"
	serviceAlert        = "alert"
	serviceDashboard    = "dashboard"
	serviceDocument     = "document"
	serviceExport       = "export"
	serviceNotification = "notification"
	serviceMailer       = "mailer"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetProjectService() (services.ProjectServiceInterface, error)
	GetReportService() (services.ReportServiceInterface, error)
	GetPhotoService() (services.PhotoServiceInterface, error)
	GetChecklistService() (services.ChecklistServiceInterface, error)
	GetContactService() (services.ContactServiceInterface, error)
	GetAlertService() (*services.AlertService, error)
	GetDashboardService() (services.DashboardServiceInterface, error)
	GetDocumentService() (services.DocumentServiceInterface, error)
	GetExportService() (services.ExportServiceInterface, error)
	GetNotificationService() (*services.NotificationService, error)
	GetMailer() (mailer.Mailer, error)
	GetEventHub() *events.Hub
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

type starter interface {
	Startup(ctx context.Context) error
}

type stopper interface {
	Shutdown(ctx context.Context) error
}

// ServiceContainer owns every service plus the resources they share.
// Services start in registration order and stop in reverse.
type ServiceContainer struct {
	cfg       *config.Config
	logger    *observability.Logger
	dbManager *database.Manager
	db        *sql.DB
	hub       *events.Hub

	mu       sync.RWMutex
	services map[string]interface{}
	order    []string
	// closers release shared resources after every service has stopped
	closers []func() error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize opens the database, runs migrations and wires every service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.ConnectAndMigrate(ctx, sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	return sc.initializeWithDB(ctx, db)
}

// InitializeWithDB wires every service on an already open database
func (sc *ServiceContainer) InitializeWithDB(ctx context.Context, db *sql.DB) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.initializeWithDB(ctx, db)
}

func (sc *ServiceContainer) initializeWithDB(ctx context.Context, db *sql.DB) error {
	sc.db = db
	sc.closers = append(sc.closers, db.Close)

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}
	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}
	return nil
}

func (sc *ServiceContainer) register(name string, svc interface{}) {
	if _, dup := sc.services[name]; !dup {
		sc.order = append(sc.order, name)
	}
	sc.services[name] = svc
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, serviceUser)
}

// GetProjectService returns the project service
func (sc *ServiceContainer) GetProjectService() (services.ProjectServiceInterface, error) {
	return GetServiceAs[services.ProjectServiceInterface](sc, serviceProject)
}

// GetReportService returns the report service
func (sc *ServiceContainer) GetReportService() (services.ReportServiceInterface, error) {
	return GetServiceAs[services.ReportServiceInterface](sc, serviceReport)
}

// GetPhotoService returns the photo service
func (sc *ServiceContainer) GetPhotoService() (services.PhotoServiceInterface, error) {
	return GetServiceAs[services.PhotoServiceInterface](sc, servicePhoto)
}

// GetChecklistService returns the checklist service
func (sc *ServiceContainer) GetChecklistService() (services.ChecklistServiceInterface, error) {
	return GetServiceAs[services.ChecklistServiceInterface](sc, serviceChecklist)
}

// GetContactService returns the contact service
func (sc *ServiceContainer) GetContactService() (services.ContactServiceInterface, error) {
	return GetServiceAs[services.ContactServiceInterface](sc, serviceContact)
}

// GetAlertService returns the concrete alert service, which the reminder worker also drives
func (sc *ServiceContainer) GetAlertService() (*services.AlertService, error) {
	return GetServiceAs[*services.AlertService](sc, serviceAlert)
}

// GetDashboardService returns the dashboard service
func (sc *ServiceContainer) GetDashboardService() (services.DashboardServiceInterface, error) {
	return GetServiceAs[services.DashboardServiceInterface](sc, serviceDashboard)
}

// GetDocumentService returns the PDF document service
func (sc *ServiceContainer) GetDocumentService() (services.DocumentServiceInterface, error) {
	return GetServiceAs[services.DocumentServiceInterface](sc, serviceDocument)
}

// GetExportService returns the register export service
func (sc *ServiceContainer) GetExportService() (services.ExportServiceInterface, error) {
	return GetServiceAs[services.ExportServiceInterface](sc, serviceExport)
}

// GetNotificationService returns the notification service
func (sc *ServiceContainer) GetNotificationService() (*services.NotificationService, error) {
	return GetServiceAs[*services.NotificationService](sc, serviceNotification)
}

// GetMailer returns the configured mailer
func (sc *ServiceContainer) GetMailer() (mailer.Mailer, error) {
	return GetServiceAs[mailer.Mailer](sc, serviceMailer)
}

// GetEventHub returns the review-queue event hub
func (sc *ServiceContainer) GetEventHub() *events.Hub {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.hub
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown stops every service and closes the database
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for _, name := range sc.order {
		svc, ok := sc.services[name].(starter)
		if !ok {
			continue
		}
		sc.logger.Debug(ctx, "Starting service", map[string]interface{}{"service": name})
		if err := svc.Startup(ctx); err != nil {
			return contextutils.WrapErrorf(err, "failed to startup service %s", name)
		}
	}
	return nil
}

// cleanup stops services newest first, then closes the shared resources.
// Notifications drain before the database handle goes away.
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.order) - 1; i >= 0; i-- {
		name := sc.order[i]
		svc, ok := sc.services[name].(stopper)
		if !ok {
			continue
		}
		if err := svc.Shutdown(ctx); err != nil {
			sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
			errs = append(errs, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
		}
	}

	for i := len(sc.closers) - 1; i >= 0; i-- {
		errs = append(errs, sc.closers[i]())
	}
	sc.closers = nil
	return errors.Join(errs...)
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	uploads, err := services.NewLocalFileStore(sc.cfg.Storage.UploadDir, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to open upload store")
	}
	docs, err := services.NewLocalFileStore(sc.cfg.Storage.DocumentDir, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to open document store")
	}

	// services accept a nil recorder
	metrics, err := observability.NewReportMetrics()
	if err != nil {
		sc.logger.Warn(ctx, "Report metrics unavailable", map[string]interface{}{"error": err.Error()})
		metrics = nil
	}

	sc.hub = events.NewHub(sc.logger)
	hub := sc.hub
	sc.closers = append(sc.closers, func() error { hub.Close(); return nil })

	emails := services.CreateEmailService(sc.cfg, sc.logger)
	sc.register(serviceMailer, emails)

	notifications := services.NewNotificationServiceWithLogger(sc.db, sc.cfg, emails, metrics, sc.logger)
	sc.register(serviceNotification, notifications)

	sc.register(serviceUser, services.NewUserService(sc.db, sc.cfg, sc.logger))

	projects := services.NewProjectServiceWithLogger(sc.db, uploads, sc.logger)
	sc.register(serviceProject, projects)

	reports := services.NewReportServiceWithLogger(sc.db, sc.cfg, notifications, hub, uploads, metrics, sc.logger).
		WithDocumentStore(docs)
	sc.register(serviceReport, reports)

	alerts := services.NewAlertServiceWithLogger(sc.db, sc.logger)
	sc.register(serviceAlert, alerts)

	sc.register(servicePhoto, services.NewPhotoServiceWithLogger(sc.db, sc.cfg, uploads, metrics, sc.logger))
	sc.register(serviceChecklist, services.NewChecklistServiceWithLogger(sc.db, sc.logger))
	sc.register(serviceContact, services.NewContactServiceWithLogger(sc.db, sc.logger))
	sc.register(serviceDashboard, services.NewDashboardServiceWithLogger(sc.db, sc.cfg, projects, reports, alerts, sc.logger))
	sc.register(serviceDocument, services.NewDocumentServiceWithLogger(sc.db, reports, uploads, docs, sc.logger))
	sc.register(serviceExport, services.NewExportServiceWithLogger(sc.db, sc.logger))

	return nil
}

// EnsureAdminUser seeds the configured admin account on first start
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminName, sc.cfg.Server.AdminEmail, sc.cfg.Server.AdminPassword)
}
