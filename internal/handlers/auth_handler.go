package handlers

import (
	"errors"
	"net/http"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler manages the cookie session: login, logout and status
type AuthHandler struct {
	users  services.UserServiceInterface
	logger *observability.Logger
}

func NewAuthHandler(users services.UserServiceInterface, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Login handles POST /v1/auth/login. Unknown email and wrong password get the
// same 401 so accounts cannot be probed.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	email := string(req.Email)

	user, err := h.users.AuthenticateUser(ctx, email, req.Password)
	switch {
	case errors.Is(err, contextutils.ErrInvalidCredentials):
		h.logger.Warn(ctx, "Login rejected", map[string]interface{}{"email": email})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	case err != nil:
		h.logger.Error(ctx, "Authentication failed", err, map[string]interface{}{"email": email})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(user.ID), attribute.String("user.role", string(user.Role)))

	if err := startSession(c, user); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	h.logger.Info(ctx, "User logged in", map[string]interface{}{"user_id": user.ID, "role": string(user.Role)})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "user": user})
}

// Logout handles POST /v1/auth/logout. It succeeds without a session too.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	userID, hadSession := GetUserIDFromSession(c)
	if err := clearSession(c); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}
	if hadSession {
		span.SetAttributes(observability.AttributeUserID(userID))
		h.logger.Info(ctx, "User logged out", map[string]interface{}{"user_id": userID})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

// Status handles GET /v1/auth/status. A session whose user has been deleted
// is cleared and reported as anonymous.
func (h *AuthHandler) Status(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "status")
	defer observability.FinishSpan(span, nil)

	var user *models.User
	if userID, ok := GetUserIDFromSession(c); ok {
		span.SetAttributes(observability.AttributeUserID(userID))

		var err error
		if user, err = h.users.GetUserByID(ctx, userID); err != nil {
			h.logger.Error(ctx, "Error getting user by ID", err, map[string]interface{}{"user_id": userID})
			HandleAppError(c, contextutils.ErrInternalError)
			return
		}
		if user == nil {
			if err := clearSession(c); err != nil {
				h.logger.Error(ctx, "Error clearing stale session", err, map[string]interface{}{"user_id": userID})
			}
		}
	}

	span.SetAttributes(attribute.Bool("auth.authenticated", user != nil))
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}
