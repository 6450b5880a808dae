package models

import (
	"database/sql"
	"time"
)

// ProjectStatus is the lifecycle state of a construction project
type ProjectStatus string

const (
	// ProjectStatusActive is the default status for new projects
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusPaused marks a project that is temporarily stopped
	ProjectStatusPaused ProjectStatus = "paused"
	// ProjectStatusCompleted marks a finished project
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusPaused, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project is a construction site that owns reports, contacts and alerts
type Project struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	ResponsibleID int             `json:"responsible_id"`
	Status        ProjectStatus   `json:"status"`
	StartDate     sql.NullTime    `json:"-"`
	EndDate       sql.NullTime    `json:"-"`
	Address       string          `json:"address"`
	GPSAddress    string          `json:"gps_address"`
	Latitude      sql.NullFloat64 `json:"-"`
	Longitude     sql.NullFloat64 `json:"-"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// ResponsibleName is filled by list queries that join users
	ResponsibleName string `json:"responsible_name,omitempty"`
}

// MarshalJSON renders nullable columns as JSON null
func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	return marshalWith(&struct {
		alias
		StartDate *time.Time `json:"start_date"`
		EndDate   *time.Time `json:"end_date"`
		Latitude  *float64   `json:"latitude"`
		Longitude *float64   `json:"longitude"`
	}{
		alias:     alias(p),
		StartDate: nullTimeToPointer(p.StartDate),
		EndDate:   nullTimeToPointer(p.EndDate),
		Latitude:  nullFloat64ToPointer(p.Latitude),
		Longitude: nullFloat64ToPointer(p.Longitude),
	})
}

// AccessibleBy reports whether the actor may read the project and its children
func (p *Project) AccessibleBy(a Actor) bool {
	return a.IsAdmin() || p.ResponsibleID == a.UserID
}

// ProjectInput carries the editable project columns
type ProjectInput struct {
	Name          string
	Type          string
	ResponsibleID int
	Status        ProjectStatus
	StartDate     *time.Time
	EndDate       *time.Time
	Address       string
	GPSAddress    string
	Latitude      *float64
	Longitude     *float64
	Description   string
}
