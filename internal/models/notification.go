package models

import "time"

// NotificationKind selects the message template for a report status change
type NotificationKind string

const (
	// NotificationReportApproved is sent to the owner after approval
	NotificationReportApproved NotificationKind = "report_approved"
	// NotificationReportRejected is sent to the owner after rejection
	NotificationReportRejected NotificationKind = "report_rejected"
	// NotificationReportStatus is the generic fallback
	NotificationReportStatus NotificationKind = "report_status"
	// NotificationAlertDue is sent by the reminder worker when an alert falls due
	NotificationAlertDue NotificationKind = "alert_due"
)

// NotificationKindFor maps a report status to the template used to announce it
func NotificationKindFor(status ReportStatus) NotificationKind {
	switch status {
	case ReportStatusApproved:
		return NotificationReportApproved
	case ReportStatusRejected:
		return NotificationReportRejected
	default:
		return NotificationReportStatus
	}
}

// SentNotification records a delivery attempt
type SentNotification struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Type         string    `json:"type"`
	Subject      string    `json:"subject"`
	TemplateName string    `json:"template_name"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}
