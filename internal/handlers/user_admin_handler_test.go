package handlers

import (
	"net/http"
	"testing"

	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupUserAdminRouter(t *testing.T, users *MockUserService) *gin.Engine {
	h := NewUserAdminHandler(users, newTestLogger())
	r := newTestRouter(&adminActor)
	r.GET("/v1/admin/users", h.ListUsers)
	r.POST("/v1/admin/users", h.CreateUser)
	r.DELETE("/v1/admin/users/:id", h.DeleteUser)
	r.POST("/v1/admin/users/:id/password", h.ResetPassword)
	return r
}

func TestUserAdminHandler_ListUsers(t *testing.T) {
	users := new(MockUserService)
	users.On("ListUsers", mock.Anything).Return([]models.User{{ID: 1, Name: "Admin", Role: models.RoleAdmin}, {ID: 2, Name: "Ana", Role: models.RoleUser}}, nil)

	r := setupUserAdminRouter(t, users)
	w := performRequest(r, "GET", "/v1/admin/users", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["users"], 2)
}

func TestUserAdminHandler_CreateUser(t *testing.T) {
	users := new(MockUserService)
	users.On("CreateUser", mock.Anything, "Ana", "ana@example.com", "secret1", models.RoleUser).
		Return(&models.User{ID: 2, Name: "Ana", Email: "ana@example.com", Role: models.RoleUser}, nil)

	r := setupUserAdminRouter(t, users)
	w := performRequest(r, "POST", "/v1/admin/users", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1", "role": "user",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["id"])
	users.AssertExpectations(t)
}

func TestUserAdminHandler_CreateUser_Validation(t *testing.T) {
	users := new(MockUserService)
	users.On("CreateUser", mock.Anything, "Ana", "ana@example.com", "secret1", models.Role("")).
		Return(nil, contextutils.WrapError(contextutils.ErrRecordExists, "email already registered"))

	r := setupUserAdminRouter(t, users)

	w := performRequest(r, "POST", "/v1/admin/users", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, "POST", "/v1/admin/users", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserAdminHandler_DeleteUser(t *testing.T) {
	users := new(MockUserService)
	users.On("DeleteUser", mock.Anything, adminActor, 2).Return(nil)
	users.On("DeleteUser", mock.Anything, adminActor, 1).Return(contextutils.WrapError(contextutils.ErrConflict, "cannot delete yourself"))

	r := setupUserAdminRouter(t, users)

	assert.Equal(t, http.StatusOK, performRequest(r, "DELETE", "/v1/admin/users/2", nil).Code)
	assert.Equal(t, http.StatusConflict, performRequest(r, "DELETE", "/v1/admin/users/1", nil).Code)
}

func TestUserAdminHandler_ResetPassword(t *testing.T) {
	users := new(MockUserService)
	users.On("UpdateUserPassword", mock.Anything, 2, "n3w-secret").Return(nil)

	r := setupUserAdminRouter(t, users)

	w := performRequest(r, "POST", "/v1/admin/users/2/password", map[string]string{"new_password": "n3w-secret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, "POST", "/v1/admin/users/2/password", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	users.AssertNumberOfCalls(t, "UpdateUserPassword", 1)
}
