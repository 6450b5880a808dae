package handlers

import (
	"net/http"

	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/gin-gonic/gin"
)

// UserAdminHandler serves the admin-only account endpoints
type UserAdminHandler struct {
	users  services.UserServiceInterface
	logger *observability.Logger
}

// NewUserAdminHandler creates a UserAdminHandler
func NewUserAdminHandler(users services.UserServiceInterface, logger *observability.Logger) *UserAdminHandler {
	return &UserAdminHandler{users: users, logger: logger}
}

// ListUsers handles GET /v1/admin/users
func (h *UserAdminHandler) ListUsers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_list_users")
	defer observability.FinishSpan(span, nil)

	list, err := h.users.ListUsers(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "total": len(list)})
}

// CreateUser handles POST /v1/admin/users. Role defaults to user.
func (h *UserAdminHandler) CreateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_create_user")
	defer observability.FinishSpan(span, nil)

	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	created, err := h.users.CreateUser(ctx, req.Name, string(req.Email), req.Password, req.Role)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(created.ID))
	h.logger.Info(ctx, "Account created by admin", map[string]interface{}{"created_user_id": created.ID, "role": string(created.Role)})
	c.JSON(http.StatusCreated, created)
}

// DeleteUser handles DELETE /v1/admin/users/:id. Admins cannot delete themselves.
func (h *UserAdminHandler) DeleteUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_user")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	target, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(ctx, actor, target); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
}

// ResetPassword handles POST /v1/admin/users/:id/password
func (h *UserAdminHandler) ResetPassword(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_reset_password")
	defer observability.FinishSpan(span, nil)

	target, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	if err := h.users.UpdateUserPassword(ctx, target, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Password reset by admin", map[string]interface{}{"target_user_id": target})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}
