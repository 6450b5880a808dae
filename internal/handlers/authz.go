package handlers

import (
	"errors"

	"siteworks/internal/middleware"
	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrUnauthenticated indicates no current user could be determined
var ErrUnauthenticated = errors.New("user not authenticated")

// GetCurrentActor returns the actor placed in the context by RequireAuth or RequireAdmin
func GetCurrentActor(c *gin.Context) (models.Actor, error) {
	actor, ok := middleware.CurrentActor(c)
	if !ok || actor.UserID <= 0 {
		return models.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

// requireActor writes a 401 and returns false when no actor is present
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, err := GetCurrentActor(c)
	if err != nil {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}
