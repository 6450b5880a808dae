package handlers

import (
	"context"
	"errors"
	"strings"

	"siteworks/internal/config"
	"siteworks/internal/events"
	"siteworks/internal/observability"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// EventsHandler upgrades GET /v1/events to a websocket fed by the review-queue hub
type EventsHandler struct {
	hub    *events.Hub
	cfg    *config.Config
	logger *observability.Logger
}

// NewEventsHandler creates an EventsHandler
func NewEventsHandler(hub *events.Hub, cfg *config.Config, logger *observability.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, cfg: cfg, logger: logger}
}

// Stream handles GET /v1/events
func (h *EventsHandler) Stream(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.cfg.Server.Debug {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = originPatterns(h.cfg.Server.CORSOrigins)
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		// Accept has already written the HTTP error
		h.logger.Warn(c.Request.Context(), "Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer func() { _ = conn.CloseNow() }()

	sub := h.hub.Subscribe(actor.UserID, actor.IsAdmin())
	defer h.hub.Unsubscribe(sub)

	h.logger.Debug(c.Request.Context(), "Event stream opened", map[string]interface{}{"user_id": actor.UserID, "subscribers": h.hub.Count()})
	err = h.hub.Serve(c.Request.Context(), conn, sub)
	if err != nil && !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
		h.logger.Debug(c.Request.Context(), "Event stream ended", map[string]interface{}{"user_id": actor.UserID, "error": err.Error()})
	}
}

// originPatterns strips schemes from configured CORS origins for websocket origin checks
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		patterns = append(patterns, o)
	}
	return patterns
}
