package handlers

import (
	"siteworks/internal/middleware"
	"siteworks/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetUserIDFromSession reports the logged-in user. Only positive int IDs
// written by startSession count; anything else is treated as anonymous.
func GetUserIDFromSession(c *gin.Context) (int, bool) {
	id, ok := sessions.Default(c).Get(middleware.UserIDKey).(int)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// startSession replaces whatever the cookie held with the user's identity.
// The auth middleware reads role and email back without a database lookup.
func startSession(c *gin.Context, user *models.User) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(middleware.UserIDKey, user.ID)
	s.Set(middleware.EmailKey, user.Email)
	s.Set(middleware.RoleKey, string(user.Role))
	return s.Save()
}

func clearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}
