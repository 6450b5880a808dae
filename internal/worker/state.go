package worker

import (
	"fmt"
	"time"
)

const maxActivityLogs = 100

// Status is the live state shown on the admin details endpoint
type Status struct {
	IsRunning       bool      `json:"is_running"`
	IsPaused        bool      `json:"is_paused"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
	TotalReminders  int       `json:"total_reminders"`
}

// RunRecord is one completed pass. Status is "Success" or "Failure".
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Details   string        `json:"details"`
}

// ActivityLog is a human-readable event; Level is INFO, WARN or ERROR
type ActivityLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	AlertID   *int      `json:"alert_id,omitempty"`
}

// RunResult summarises one pass over the due alerts
type RunResult struct {
	Due      int `json:"due"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Deferred int `json:"deferred"`
}

func (r RunResult) String() string {
	if r.Due == 0 && r.Deferred == 0 {
		return "No due alerts"
	}
	return fmt.Sprintf("Reminded %d of %d due alerts (%d failed, %d not sent, %d backing off)",
		r.Sent, r.Due, r.Failed, r.Skipped, r.Deferred)
}

// ring keeps the newest limit entries. Callers hold the worker lock.
type ring[T any] struct {
	items []T
	limit int
}

func newRing[T any](limit int) ring[T] {
	return ring[T]{items: make([]T, 0, limit), limit: limit}
}

func (r *ring[T]) push(v T) {
	r.items = append(r.items, v)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = r.items[over:]
	}
}

func (r *ring[T]) snapshot() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}
