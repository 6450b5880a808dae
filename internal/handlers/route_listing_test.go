package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteListingHandler_CollectRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	noop := func(_ *gin.Context) {}

	router.GET("/", noop)
	router.GET("/debug/pprof", noop)
	v1 := router.Group("/v1")
	v1.GET("/reports", noop)
	v1.POST("/reports", noop)
	v1.PUT("/reports/:id/approve", noop)
	v1.POST("/admin/worker/pause", noop)

	handler := NewRouteListingHandler("backend")
	handler.CollectRoutes(router)

	require.Len(t, handler.routes, 5)
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/", Group: "root", HandlerName: handler.routes[0].HandlerName}, handler.routes[0])
	assert.Equal(t, "POST /v1/admin/worker/pause", handler.routes[1].Method+" "+handler.routes[1].Path)
	assert.True(t, handler.routes[1].AdminOnly)
	assert.Equal(t, "admin", handler.routes[1].Group)
	assert.Equal(t, "GET", handler.routes[2].Method)
	assert.Equal(t, "POST", handler.routes[3].Method)
	assert.Equal(t, "reports", handler.routes[4].Group)
	assert.False(t, handler.routes[4].AdminOnly)

	// collecting twice does not duplicate
	handler.CollectRoutes(router)
	assert.Len(t, handler.routes, 5)
}

func TestRouteGroup(t *testing.T) {
	assert.Equal(t, "root", routeGroup("/"))
	assert.Equal(t, "health", routeGroup("/health"))
	assert.Equal(t, "v1", routeGroup("/v1"))
	assert.Equal(t, "projects", routeGroup("/v1/projects/:id/reports"))
}

func TestRouteListingHandler_GetRouteListingJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewRouteListingHandler("worker")
	router.GET("/", handler.GetRouteListingJSON)
	router.GET("/health", func(_ *gin.Context) {})
	router.GET("/v1/admin/worker/details", func(_ *gin.Context) {})
	handler.CollectRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	var body struct {
		Service string         `json:"service"`
		Total   int            `json:"total"`
		Methods map[string]int `json:"methods"`
		Groups  map[string]int `json:"groups"`
		Routes  []RouteInfo    `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "worker", body.Service)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, map[string]int{"GET": 3}, body.Methods)
	assert.Equal(t, map[string]int{"root": 1, "health": 1, "admin": 1}, body.Groups)
	assert.Equal(t, "/health", body.Routes[1].Path)
}
