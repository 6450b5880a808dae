package handlers

import (
	"net/http"
	"strconv"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
)

const maxAlertLimit = 100

// AlertHandler serves /v1/alerts
type AlertHandler struct {
	alerts services.AlertServiceInterface
	cfg    *config.Config
	logger *observability.Logger
}

// NewAlertHandler creates an AlertHandler
func NewAlertHandler(alerts services.AlertServiceInterface, cfg *config.Config, logger *observability.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, cfg: cfg, logger: logger}
}

// ListAlerts handles GET /v1/alerts?limit=
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_alerts")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.Reports.DashboardRecent)))
	if err != nil || limit < 1 {
		limit = h.cfg.Reports.DashboardRecent
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts, err := h.alerts.ListUpcomingAlerts(ctx, actor, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ResolveAlert handles POST /v1/alerts/:id/resolve
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "resolve_alert")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.alerts.ResolveAlert(ctx, actor, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
