package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteworks/internal/config"
	"siteworks/internal/events"
	"siteworks/internal/middleware"
	"siteworks/internal/observability"
	"siteworks/internal/services"
)

// Services is everything the public API router dispatches to
type Services struct {
	Users      services.UserServiceInterface
	Projects   services.ProjectServiceInterface
	Reports    services.ReportServiceInterface
	Photos     services.PhotoServiceInterface
	Checklists services.ChecklistServiceInterface
	Contacts   services.ContactServiceInterface
	Alerts     services.AlertServiceInterface
	Dashboard  services.DashboardServiceInterface
	Documents  services.DocumentServiceInterface
	Exports    services.ExportServiceInterface
	Events     *events.Hub
}

// NewRouter builds the backend API: shared middleware, /health, /v1/version,
// the session-guarded resource groups and the route index at "/".
func NewRouter(cfg *config.Config, svc Services, logger *observability.Logger) *gin.Engine {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	router.RedirectTrailingSlash = false
	router.Use(
		middleware.ErrorRecoveryMiddleware(logger, cfg.Server.CircuitBreaker),
		middleware.RequestID(),
		RequestLogger(logger),
	)

	// registered ahead of tracing so probes stay out of the trace stream
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName)...)
	router.Use(corsMiddleware(cfg), NewSessionMiddleware(cfg), secureMiddleware(cfg))

	v1 := router.Group("/v1")
	v1.GET("/version", versionHandler(cfg))
	registerRoutes(v1, cfg, svc, logger)

	index := NewRouteListingHandler("backend")
	router.GET("/", index.GetRouteListingJSON)
	index.CollectRoutes(router)
	return router
}

func registerRoutes(v1 *gin.RouterGroup, cfg *config.Config, svc Services, logger *observability.Logger) {
	authn := middleware.RequireAuth()

	auth := NewAuthHandler(svc.Users, logger)
	v1.POST("/auth/login", auth.Login)
	v1.POST("/auth/logout", auth.Logout)
	v1.GET("/auth/status", auth.Status)

	projects := NewProjectHandler(svc.Projects, svc.Exports, logger)
	pg := v1.Group("/projects", authn)
	pg.GET("", projects.ListProjects)
	pg.POST("", projects.CreateProject)
	pg.GET("/:id", projects.GetProject)
	pg.PUT("/:id", projects.UpdateProject)
	pg.DELETE("/:id", projects.DeleteProject)
	pg.GET("/:id/register.xlsx", projects.ExportRegister)

	reports := NewReportHandler(svc.Reports, svc.Documents, logger)
	photos := NewPhotoHandler(svc.Photos, cfg, logger)
	rg := v1.Group("/reports", authn)
	rg.GET("", reports.ListReports)
	rg.POST("", reports.CreateReport)
	rg.GET("/:id", reports.GetReport)
	rg.PUT("/:id", reports.UpdateReport)
	rg.DELETE("/:id", reports.DeleteReport)
	rg.POST("/:id/approve", reports.ApproveReport)
	rg.POST("/:id/reject", reports.RejectReport)
	rg.GET("/:id/history", reports.GetApprovalHistory)
	rg.GET("/:id/pdf", reports.DownloadPDF)
	rg.GET("/:id/photos", photos.ListPhotos)
	rg.POST("/:id/photos", photos.UploadPhoto)
	v1.GET("/photos/:id/file", authn, photos.ServePhoto)

	checklists := NewChecklistHandler(svc.Checklists, logger)
	cg := v1.Group("/checklists", authn)
	cg.GET("", checklists.ListChecklists)
	cg.GET("/:id", checklists.GetChecklist)
	cg.POST("", checklists.CreateChecklist)
	cg.PUT("/:id", checklists.UpdateChecklist)
	cg.PUT("/:id/active", checklists.SetChecklistActive)
	cg.DELETE("/:id", checklists.DeleteChecklist)

	contacts := NewContactHandler(svc.Contacts, logger)
	v1.GET("/contacts", authn, contacts.ListContacts)
	v1.POST("/contacts", authn, contacts.CreateContact)
	v1.DELETE("/contacts/:id", authn, contacts.DeleteContact)

	alerts := NewAlertHandler(svc.Alerts, cfg, logger)
	v1.GET("/alerts", authn, alerts.ListAlerts)
	v1.POST("/alerts/:id/resolve", authn, alerts.ResolveAlert)

	dashboard := NewDashboardHandler(svc.Dashboard, logger)
	v1.GET("/dashboard", authn, dashboard.GetDashboard)
	v1.GET("/events", authn, NewEventsHandler(svc.Events, cfg, logger).Stream)

	users := NewUserAdminHandler(svc.Users, logger)
	admin := v1.Group("/admin", middleware.RequireAdmin(svc.Users))
	admin.GET("/users", users.ListUsers)
	admin.POST("/users", users.CreateUser)
	admin.DELETE("/users/:id", users.DeleteUser)
	admin.POST("/users/:id/password", users.ResetPassword)
	admin.GET("/stats", dashboard.GetAdminStats)
}
