package handlers

import (
	"time"

	"siteworks/internal/models"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// LoginRequest is the body of POST /v1/auth/login
type LoginRequest struct {
	Email    openapi_types.Email `json:"email" binding:"required"`
	Password string              `json:"password" binding:"required"`
}

// UserCreateRequest is the body of POST /v1/admin/users
type UserCreateRequest struct {
	Name     string              `json:"name" binding:"required"`
	Email    openapi_types.Email `json:"email" binding:"required"`
	Password string              `json:"password" binding:"required"`
	Role     models.Role         `json:"role" binding:"omitempty,oneof=admin user"`
}

// PasswordResetRequest is the body of POST /v1/admin/users/:id/password
type PasswordResetRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// ProjectRequest is the body of project create and update
type ProjectRequest struct {
	Name          string               `json:"name" binding:"required"`
	Type          string               `json:"type"`
	ResponsibleID int                  `json:"responsible_id" binding:"required,gt=0"`
	Status        models.ProjectStatus `json:"status"`
	StartDate     *openapi_types.Date  `json:"start_date"`
	EndDate       *openapi_types.Date  `json:"end_date"`
	Address       string               `json:"address"`
	GPSAddress    string               `json:"gps_address"`
	Latitude      *float64             `json:"latitude"`
	Longitude     *float64             `json:"longitude"`
	Description   string               `json:"description"`
}

// ReportRequest is the body of report create and edit. ProjectID is ignored on edit.
type ReportRequest struct {
	ProjectID   int                     `json:"project_id" binding:"omitempty,gt=0"`
	ReportDate  *openapi_types.Date     `json:"report_date"`
	Activities  string                  `json:"activities"`
	ChecklistID *int                    `json:"checklist_id"`
	Checklist   models.ChecklistAnswers `json:"checklist"`
	Latitude    *float64                `json:"latitude"`
	Longitude   *float64                `json:"longitude"`
}

// ApproveRequest is the optional body of POST /v1/reports/:id/approve
type ApproveRequest struct {
	Remarks string `json:"remarks"`
}

// RejectRequest is the body of POST /v1/reports/:id/reject.
// Deadline takes precedence over RevisionDays.
type RejectRequest struct {
	Remarks      string     `json:"remarks"`
	Deadline     *time.Time `json:"deadline"`
	RevisionDays int        `json:"revision_days"`
}

// ChecklistRequest is the body of checklist create and update
type ChecklistRequest struct {
	Name      string   `json:"name" binding:"required"`
	Fields    []string `json:"fields"`
	Mandatory []string `json:"mandatory"`
	Active    *bool    `json:"active"`
}

// ContactRequest is the body of POST /v1/contacts
type ContactRequest struct {
	ProjectID int    `json:"project_id" binding:"required,gt=0"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Position  string `json:"position"`
}
