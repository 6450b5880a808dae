package handlers

import (
	"net/http"
	"strconv"

	"siteworks/internal/observability"
	"siteworks/internal/services"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// ChecklistHandler serves /v1/checklists
type ChecklistHandler struct {
	checklists services.ChecklistServiceInterface
	logger     *observability.Logger
}

// NewChecklistHandler creates a ChecklistHandler
func NewChecklistHandler(checklists services.ChecklistServiceInterface, logger *observability.Logger) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklists, logger: logger}
}

// ListChecklists handles GET /v1/checklists?active=true
func (h *ChecklistHandler) ListChecklists(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_checklists")
	defer observability.FinishSpan(span, nil)

	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	templates, err := h.checklists.ListChecklists(ctx, activeOnly)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checklists": templates})
}

// GetChecklist handles GET /v1/checklists/:id
func (h *ChecklistHandler) GetChecklist(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_checklist")
	defer observability.FinishSpan(span, nil)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	template, err := h.checklists.GetChecklist(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if template == nil {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "checklist %d not found", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        template.ID,
		"name":      template.Name,
		"fields":    template.Fields,
		"mandatory": template.Mandatory,
		"active":    template.Active,
	})
}

// CreateChecklist handles POST /v1/checklists
func (h *ChecklistHandler) CreateChecklist(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_checklist")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	template, err := h.checklists.CreateChecklist(ctx, actor, req.toDefinition())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// UpdateChecklist handles PUT /v1/checklists/:id
func (h *ChecklistHandler) UpdateChecklist(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_checklist")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	template, err := h.checklists.UpdateChecklist(ctx, actor, id, req.toDefinition())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// SetChecklistActive handles PUT /v1/checklists/:id/active with {"active": bool}
func (h *ChecklistHandler) SetChecklistActive(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "set_checklist_active")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	if err := h.checklists.SetChecklistActive(ctx, actor, id, *req.Active); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

// DeleteChecklist handles DELETE /v1/checklists/:id
func (h *ChecklistHandler) DeleteChecklist(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_checklist")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.checklists.DeleteChecklist(ctx, actor, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Checklist deleted"})
}
