package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportStatus is the review state of a report
type ReportStatus string

const (
	// ReportStatusPending is the state every report starts in and returns to on resubmission
	ReportStatusPending ReportStatus = "pending"
	// ReportStatusApproved is terminal
	ReportStatusApproved ReportStatus = "approved"
	// ReportStatusRejected waits for the owner to resubmit
	ReportStatusRejected ReportStatus = "rejected"
)

// Valid reports whether s is a known status
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// CanReview reports whether a report in this status may be approved or rejected
func (s ReportStatus) CanReview() bool {
	return s == ReportStatusPending
}

// CanEdit reports whether a report in this status may be edited or resubmitted
func (s ReportStatus) CanEdit() bool {
	return s == ReportStatusPending || s == ReportStatusRejected
}

// InitialReportVersion is assigned at creation. No operation changes it.
const InitialReportVersion = 1

// ChecklistAnswers maps a checklist field label to the submitted answer.
// It is stored as a JSONB object.
type ChecklistAnswers map[string]string

// Value implements driver.Valuer
func (a ChecklistAnswers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *ChecklistAnswers) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = ChecklistAnswers{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ChecklistAnswers", src)
	}
	out := ChecklistAnswers{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*a = out
	return nil
}

// Report is a dated field submission for a project, subject to administrator review
type Report struct {
	ID               int              `json:"id"`
	ProjectID        int              `json:"project_id"`
	UserID           int              `json:"user_id"`
	SequenceNumber   int              `json:"sequence_number"`
	Code             string           `json:"code"`
	Version          int              `json:"version"`
	ReportDate       time.Time        `json:"report_date"`
	Activities       string           `json:"activities"`
	ChecklistID      sql.NullInt64    `json:"-"`
	Checklist        ChecklistAnswers `json:"checklist"`
	Status           ReportStatus     `json:"status"`
	ApproverID       sql.NullInt64    `json:"-"`
	ReviewedAt       sql.NullTime     `json:"-"`
	AdminRemarks     string           `json:"admin_remarks"`
	RevisionDeadline sql.NullTime     `json:"-"`
	Latitude         sql.NullFloat64  `json:"-"`
	Longitude        sql.NullFloat64  `json:"-"`
	PDFPath          sql.NullString   `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// MarshalJSON renders nullable columns as JSON null
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return marshalWith(&struct {
		alias
		ChecklistID      *int64     `json:"checklist_id"`
		ApproverID       *int64     `json:"approver_id"`
		ReviewedAt       *time.Time `json:"reviewed_at"`
		RevisionDeadline *time.Time `json:"revision_deadline"`
		Latitude         *float64   `json:"latitude"`
		Longitude        *float64   `json:"longitude"`
		PDFPath          *string    `json:"pdf_path"`
	}{
		alias:            alias(r),
		ChecklistID:      nullInt64ToPointer(r.ChecklistID),
		ApproverID:       nullInt64ToPointer(r.ApproverID),
		ReviewedAt:       nullTimeToPointer(r.ReviewedAt),
		RevisionDeadline: nullTimeToPointer(r.RevisionDeadline),
		Latitude:         nullFloat64ToPointer(r.Latitude),
		Longitude:        nullFloat64ToPointer(r.Longitude),
		PDFPath:          nullStringToPointer(r.PDFPath),
	})
}

// HasCoordinates reports whether both latitude and longitude are set
func (r *Report) HasCoordinates() bool {
	return r.Latitude.Valid && r.Longitude.Valid
}

// ReportCode formats the human-facing report identifier, e.g. ELP-2025-001-v1
func ReportCode(prefix string, year, sequence, version int) string {
	return fmt.Sprintf("%s-%d-%03d-v%d", prefix, year, sequence, version)
}

// ReportFilter narrows report listings. Zero values mean "any".
type ReportFilter struct {
	ProjectID int
	UserID    int
	Status    ReportStatus
	Limit     int
	Offset    int
}

// ApprovalAction is the kind of review recorded in the audit trail
type ApprovalAction string

const (
	// ApprovalActionApproved records an approval
	ApprovalActionApproved ApprovalAction = "approved"
	// ApprovalActionRejected records a rejection
	ApprovalActionRejected ApprovalAction = "rejected"
)

// ApprovalEntry is an append-only audit record of a review
type ApprovalEntry struct {
	ID           int            `json:"id"`
	ReportID     int            `json:"report_id"`
	ApproverID   int            `json:"approver_id"`
	ApproverName string         `json:"approver_name,omitempty"`
	Action       ApprovalAction `json:"action"`
	Remarks      string         `json:"remarks"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ReportInput carries the fields a user supplies on create and edit
type ReportInput struct {
	ProjectID   int
	ReportDate  *time.Time
	Activities  string
	ChecklistID *int
	Checklist   ChecklistAnswers
	Latitude    *float64
	Longitude   *float64
}

// RejectInput describes a rejection. Deadline wins over RevisionDays; a zero
// RevisionDays means the configured default.
type RejectInput struct {
	Remarks      string
	Deadline     *time.Time
	RevisionDays int
}

// ReportDocument is a rendered PDF snapshot of a report
type ReportDocument struct {
	// FileName is the stored snapshot name
	FileName string
	// DownloadName is offered to browsers as the attachment name
	DownloadName string
	Data         []byte
}
