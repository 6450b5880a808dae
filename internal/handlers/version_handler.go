package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"siteworks/internal/config"
	"siteworks/internal/version"
)

const workerVersionTimeout = 3 * time.Second

// versionHandler reports the backend build next to the reminder worker's.
// An unreachable worker shows up as {"error": ...} rather than failing the request.
func versionHandler(cfg *config.Config) gin.HandlerFunc {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   workerVersionTimeout,
	}
	return func(c *gin.Context) {
		resp := gin.H{"backend": version.Info("backend")}
		if info, problem := fetchWorkerVersion(c.Request.Context(), client, cfg.Worker.InternalURL); problem != "" {
			resp["worker"] = gin.H{"error": problem}
		} else {
			resp["worker"] = info
		}
		c.JSON(http.StatusOK, resp)
	}
}

// fetchWorkerVersion returns the worker's version document, or a short
// description of what went wrong.
func fetchWorkerVersion(ctx context.Context, client *http.Client, baseURL string) (map[string]interface{}, string) {
	const unavailable = "Worker unavailable"
	if baseURL == "" {
		return nil, unavailable
	}

	url := strings.TrimRight(baseURL, "/") + "/v1/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, unavailable
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, unavailable
	}

	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, "Failed to decode worker version"
	}
	return info, ""
}
