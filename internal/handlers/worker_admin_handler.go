package handlers

import (
	"context"
	"net/http"

	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"
	"siteworks/internal/worker"

	"github.com/gin-gonic/gin"
)

// WorkerController is the part of the reminder worker exposed over HTTP
type WorkerController interface {
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	GetActivityLogs() []worker.ActivityLog
	GetInstance() string
	TriggerManualRun()
	Pause(ctx context.Context)
	Resume(ctx context.Context)
}

// WorkerAdminHandler exposes the reminder loop's state and controls to admins
type WorkerAdminHandler struct {
	worker WorkerController
	logger *observability.Logger
}

// NewWorkerAdminHandlerWithLogger creates a WorkerAdminHandler. A nil w makes
// every endpoint answer 503.
func NewWorkerAdminHandlerWithLogger(w WorkerController, logger *observability.Logger) *WorkerAdminHandler {
	return &WorkerAdminHandler{worker: w, logger: logger}
}

// serve traces op and hands the worker to fn, or answers 503 when there is none
func (h *WorkerAdminHandler) serve(op string, fn func(ctx context.Context, w WorkerController) gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceWorkerFunction(c.Request.Context(), op)
		defer observability.FinishSpan(span, nil)

		if h.worker == nil {
			HandleAppError(c, contextutils.ErrServiceUnavailable)
			return
		}
		c.JSON(http.StatusOK, fn(ctx, h.worker))
	}
}

// GetWorkerDetails handles GET /v1/admin/worker/details
func (h *WorkerAdminHandler) GetWorkerDetails(c *gin.Context) {
	h.serve("admin_details", func(_ context.Context, w WorkerController) gin.H {
		return gin.H{"instance": w.GetInstance(), "status": w.GetStatus(), "history": w.GetHistory()}
	})(c)
}

// GetActivityLogs handles GET /v1/admin/worker/logs
func (h *WorkerAdminHandler) GetActivityLogs(c *gin.Context) {
	h.serve("admin_logs", func(_ context.Context, w WorkerController) gin.H {
		return gin.H{"logs": w.GetActivityLogs()}
	})(c)
}

// PauseWorker stops reminder delivery until resumed. The loop keeps ticking.
func (h *WorkerAdminHandler) PauseWorker(c *gin.Context) {
	h.serve("admin_pause", func(ctx context.Context, w WorkerController) gin.H {
		w.Pause(ctx)
		h.logger.Info(ctx, "Reminder worker paused by admin", map[string]interface{}{"instance": w.GetInstance()})
		return gin.H{"message": "Worker paused"}
	})(c)
}

// ResumeWorker handles POST /v1/admin/worker/resume
func (h *WorkerAdminHandler) ResumeWorker(c *gin.Context) {
	h.serve("admin_resume", func(ctx context.Context, w WorkerController) gin.H {
		w.Resume(ctx)
		h.logger.Info(ctx, "Reminder worker resumed by admin", map[string]interface{}{"instance": w.GetInstance()})
		return gin.H{"message": "Worker resumed"}
	})(c)
}

// TriggerWorkerRun queues an immediate pass; it does not wait for it
func (h *WorkerAdminHandler) TriggerWorkerRun(c *gin.Context) {
	h.serve("admin_trigger", func(_ context.Context, w WorkerController) gin.H {
		w.TriggerManualRun()
		return gin.H{"message": "Worker run triggered"}
	})(c)
}
