// Package events fans report lifecycle events out to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"siteworks/internal/observability"

	"github.com/coder/websocket"
)

// Type names a lifecycle event
type Type string

const (
	ReportCreated  Type = "report.created"
	ReportUpdated  Type = "report.updated"
	ReportApproved Type = "report.approved"
	ReportRejected Type = "report.rejected"
	AlertCreated   Type = "alert.created"
)

// Event is the message pushed to subscribers
type Event struct {
	Type      Type      `json:"type"`
	ReportID  int       `json:"report_id,omitempty"`
	ProjectID int       `json:"project_id"`
	OwnerID   int       `json:"owner_id"`
	Status    string    `json:"status,omitempty"`
	AlertID   int       `json:"alert_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher accepts events. Publish must not block.
type Publisher interface {
	Publish(evt Event)
}

const (
	subscriberBuffer = 32
	writeTimeout     = 5 * time.Second
)

// Subscription receives the events visible to one connected user
type Subscription struct {
	UserID int
	Admin  bool
	C      chan Event
}

func (s *Subscription) wants(evt Event) bool {
	return s.Admin || evt.OwnerID == s.UserID
}

// Hub tracks subscribers. Administrators see every event, users only events for reports they own.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	logger  *observability.Logger
	dropped atomic.Int64
}

// NewHub creates an empty hub
func NewHub(logger *observability.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber
func (h *Hub) Subscribe(userID int, admin bool) *Subscription {
	sub := &Subscription{UserID: userID, Admin: admin, C: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
	}
}

// Publish delivers evt to every interested subscriber. Slow subscribers lose the event.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.wants(evt) {
			continue
		}
		select {
		case sub.C <- evt:
		default:
			h.dropped.Add(1)
			h.logger.Warn(context.Background(), "Dropping event for slow subscriber", map[string]interface{}{
				"user_id": sub.UserID,
				"type":    string(evt.Type),
			})
		}
	}
}

// Dropped returns how many events were discarded for slow subscribers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Serve streams events for sub to conn until ctx ends or the client goes away.
// The caller owns sub and must Unsubscribe it.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, sub *Subscription) error {
	// CloseRead discards client frames and cancels ctx when the peer closes
	ctx = conn.CloseRead(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub.C:
			if !ok {
				return conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			data, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "websocket write failed", map[string]interface{}{"user_id": sub.UserID, "error": err.Error()})
				return err
			}
		}
	}
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.C)
	}
}
