package handlers

import (
	"net/http"

	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
)

// ContactHandler serves /v1/contacts
type ContactHandler struct {
	contacts services.ContactServiceInterface
	logger   *observability.Logger
}

// NewContactHandler creates a ContactHandler
func NewContactHandler(contacts services.ContactServiceInterface, logger *observability.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// ListContacts handles GET /v1/contacts?project_id=
func (h *ContactHandler) ListContacts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_contacts")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	projectID, err := parseIntFilter(queryFilters(c, "project_id"), "project_id")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	contacts, err := h.contacts.ListContacts(ctx, actor, projectID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// CreateContact handles POST /v1/contacts
func (h *ContactHandler) CreateContact(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_contact")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	contact, err := h.contacts.CreateContact(ctx, actor, req.toInput())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// DeleteContact handles DELETE /v1/contacts/:id
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_contact")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.contacts.DeleteContact(ctx, actor, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Contact deleted"})
}
