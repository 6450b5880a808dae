package handlers

import (
	"net/http"
	"sort"
	"strings"

	"siteworks/internal/observability"

	"github.com/gin-gonic/gin"
)

// RouteInfo is one registered route as shown on the service index
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Group       string `json:"group"`
	AdminOnly   bool   `json:"admin_only"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves the route table of a service at "/"
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{serviceName: serviceName}
}

// CollectRoutes snapshots the engine's routes. Call it after every route is
// registered; later additions are not picked up.
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = h.routes[:0]
	for _, r := range engine.Routes() {
		if strings.HasPrefix(r.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method:      r.Method,
			Path:        r.Path,
			Group:       routeGroup(r.Path),
			AdminOnly:   strings.Contains(r.Path, "/admin/"),
			HandlerName: r.Handler,
		})
	}
	sort.Slice(h.routes, func(i, j int) bool {
		a, b := h.routes[i], h.routes[j]
		if a.Path == b.Path {
			return a.Method < b.Method
		}
		return a.Path < b.Path
	})
}

// routeGroup is the resource segment after the version prefix:
// /v1/reports/:id/approve -> reports, /v1/admin/worker/pause -> admin
func routeGroup(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && segments[0] == "v1" {
		return segments[1]
	}
	if segments[0] == "" {
		return "root"
	}
	return segments[0]
}

// GetRouteListingJSON handles GET /
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)

	methods := map[string]int{}
	groups := map[string]int{}
	for _, r := range h.routes {
		methods[r.Method]++
		groups[r.Group]++
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.JSON(http.StatusOK, gin.H{
		"service": h.serviceName,
		"total":   len(h.routes),
		"methods": methods,
		"groups":  groups,
		"routes":  h.routes,
	})
}
