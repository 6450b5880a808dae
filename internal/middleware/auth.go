// Package middleware holds the gin middleware shared by the backend and worker:
// session authentication, request ids and panic recovery.
package middleware

import (
	"context"
	"net/http"

	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys, mirrored into the gin context once authenticated
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
	RoleKey   = "role"
	// ActorKey holds the models.Actor in the gin context only
	ActorKey = "actor"
)

// AdminChecker confirms the admin role against the user store
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int) (bool, error)
}

var (
	errAuthRequired  = contextutils.NewAppError(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn, "Authentication required", "")
	errAdminRequired = contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "Admin access required", "")
)

// abortWith writes the standard error body and records err on the gin context
func abortWith(c *gin.Context, status int, err *contextutils.AppError) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, err.ToJSON())
}

// sessionActor reads the authenticated identity from the cookie session
func sessionActor(c *gin.Context) (models.Actor, string, bool) {
	session := sessions.Default(c)

	var userID int
	switch v := session.Get(UserIDKey).(type) {
	case int:
		userID = v
	case float64:
		// JSON numbers are often stored as float64
		userID = int(v)
	default:
		return models.Actor{}, "", false
	}
	if userID <= 0 {
		return models.Actor{}, "", false
	}

	email, ok := session.Get(EmailKey).(string)
	if !ok || email == "" {
		return models.Actor{}, "", false
	}

	roleStr, _ := session.Get(RoleKey).(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return models.Actor{}, "", false
	}

	return models.Actor{UserID: userID, Role: role}, email, true
}

// setActor stores the actor for handlers and tags the request context with the user id
func setActor(c *gin.Context, actor models.Actor, email string) {
	c.Set(UserIDKey, actor.UserID)
	c.Set(EmailKey, email)
	c.Set(RoleKey, string(actor.Role))
	c.Set(ActorKey, actor)
	c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), actor.UserID))
}

// RequireAuth rejects requests without a complete session identity
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, email, ok := sessionActor(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, errAuthRequired)
			return
		}
		setActor(c, actor, email)
		c.Next()
	}
}

// RequireAdmin admits only admins. The session role is confirmed against
// the user store so a demoted or deleted admin loses access before the
// cookie expires.
func RequireAdmin(users AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, email, ok := sessionActor(c)
		switch {
		case !ok:
			abortWith(c, http.StatusUnauthorized, errAuthRequired)
			return
		case !actor.IsAdmin():
			abortWith(c, http.StatusForbidden, errAdminRequired)
			return
		}

		isAdmin, err := users.IsAdmin(c.Request.Context(), actor.UserID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError, contextutils.SeverityError, "Failed to check admin status", "", err))
			return
		}
		if !isAdmin {
			abortWith(c, http.StatusForbidden, errAdminRequired)
			return
		}

		setActor(c, actor, email)
		c.Next()
	}
}

// CurrentActor returns the actor stored by RequireAuth or RequireAdmin
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
