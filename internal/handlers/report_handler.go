package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultReportPageSize = 20
	maxReportPageSize     = 100
)

// ReportHandler serves /v1/reports: the report lifecycle and its documents
type ReportHandler struct {
	reports   services.ReportServiceInterface
	documents services.DocumentServiceInterface
	logger    *observability.Logger
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(reports services.ReportServiceInterface, documents services.DocumentServiceInterface, logger *observability.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, documents: documents, logger: logger}
}

// ListReports handles GET /v1/reports?project_id=&user_id=&status=&page=&page_size=
func (h *ReportHandler) ListReports(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_reports")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page := parsePagination(c, defaultReportPageSize, maxReportPageSize)
	filters := queryFilters(c, "project_id", "user_id", "status")
	filter := models.ReportFilter{
		Status: models.ReportStatus(filters["status"]),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
	var err error
	if filter.ProjectID, err = parseIntFilter(filters, "project_id"); err != nil {
		HandleAppError(c, err)
		return
	}
	if filter.UserID, err = parseIntFilter(filters, "user_id"); err != nil {
		HandleAppError(c, err)
		return
	}

	reports, err := h.reports.ListReports(ctx, actor, filter)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	writePage(c, "reports", reports, len(reports), page)
}

// CreateReport handles POST /v1/reports
func (h *ReportHandler) CreateReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	if req.ProjectID == 0 {
		HandleValidationError(c, "project_id", req.ProjectID, "is required")
		return
	}

	report, err := h.reports.CreateReport(ctx, actor, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("report.id", report.ID), attribute.String("report.code", report.Code))
	c.JSON(http.StatusCreated, report)
}

// GetReport handles GET /v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.reports.GetReport(ctx, actor, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReport handles PUT /v1/reports/:id. Editing a rejected report resubmits it.
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	report, err := h.reports.UpdateReport(ctx, actor, id, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DeleteReport handles DELETE /v1/reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reports.DeleteReport(ctx, actor, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report deleted"})
}

// ApproveReport handles POST /v1/reports/:id/approve. The body is optional.
func (h *ReportHandler) ApproveReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "approve_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			HandleBindError(c, err)
			return
		}
	}

	report, err := h.reports.ApproveReport(ctx, actor, id, req.Remarks)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RejectReport handles POST /v1/reports/:id/reject
func (h *ReportHandler) RejectReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "reject_report")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	report, err := h.reports.RejectReport(ctx, actor, id, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetApprovalHistory handles GET /v1/reports/:id/history
func (h *ReportHandler) GetApprovalHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_approval_history")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.reports.GetApprovalHistory(ctx, actor, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// DownloadPDF handles GET /v1/reports/:id/pdf. Every request renders a fresh snapshot.
func (h *ReportHandler) DownloadPDF(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "download_pdf")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.RenderReport(ctx, actor, id)
	if err != nil {
		h.logger.Error(ctx, "Failed to render report document", err, map[string]interface{}{"report_id": id})
		HandleAppError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.DownloadName))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}
