package models

import (
	"database/sql"
	"time"
)

// AlertStatus tracks whether a scheduled reminder has been dealt with
type AlertStatus string

const (
	// AlertStatusPending is the initial state
	AlertStatusPending AlertStatus = "pending"
	// AlertStatusResolved is set manually or when the linked report is resubmitted
	AlertStatusResolved AlertStatus = "resolved"
)

// Alert is a scheduled reminder tied to a project
type Alert struct {
	ID          int           `json:"id"`
	ProjectID   int           `json:"project_id"`
	ReportID    sql.NullInt64 `json:"-"`
	Description string        `json:"description"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      AlertStatus   `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`

	ProjectName string `json:"project_name,omitempty"`
}

// MarshalJSON renders the optional report link as JSON null
func (a Alert) MarshalJSON() ([]byte, error) {
	type alias Alert
	return marshalWith(&struct {
		alias
		ReportID *int64 `json:"report_id"`
	}{
		alias:    alias(a),
		ReportID: nullInt64ToPointer(a.ReportID),
	})
}

// AlertReminder is a due alert together with the project owner who should be reminded
type AlertReminder struct {
	Alert          Alert
	RecipientID    int
	RecipientName  string
	RecipientEmail string
}
