package handlers

import (
	"fmt"
	"net/http"

	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProjectHandler serves /v1/projects
type ProjectHandler struct {
	projects services.ProjectServiceInterface
	exports  services.ExportServiceInterface
	logger   *observability.Logger
}

// NewProjectHandler creates a ProjectHandler
func NewProjectHandler(projects services.ProjectServiceInterface, exports services.ExportServiceInterface, logger *observability.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, exports: exports, logger: logger}
}

// ListProjects handles GET /v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_projects")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projects, err := h.projects.ListProjects(ctx, actor)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject handles POST /v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_project")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	project, err := h.projects.CreateProject(ctx, actor, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject handles GET /v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_project")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projects.GetProject(ctx, actor, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject handles PUT /v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_project")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	project, err := h.projects.UpdateProject(ctx, actor, id, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_project")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(ctx, actor, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted"})
}

// ExportRegister handles GET /v1/projects/:id/register.xlsx
func (h *ProjectHandler) ExportRegister(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_register")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.exports.ExportRegister(ctx, actor, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.DownloadName))
	c.Data(http.StatusOK, xlsxContentType, doc.Data)
}
