package handlers

import (
	"net/http"

	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the landing page summary and admin statistics
type DashboardHandler struct {
	dashboard services.DashboardServiceInterface
	logger    *observability.Logger
}

// NewDashboardHandler creates a DashboardHandler
func NewDashboardHandler(dashboard services.DashboardServiceInterface, logger *observability.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// GetDashboard handles GET /v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_dashboard")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	d, err := h.dashboard.GetDashboard(ctx, actor)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetAdminStats handles GET /v1/admin/stats
func (h *DashboardHandler) GetAdminStats(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_admin_stats")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	stats, err := h.dashboard.GetAdminStats(ctx, actor)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
