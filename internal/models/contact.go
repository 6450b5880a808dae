package models

import "time"

// Contact is a person attached to a project (supplier, inspector, client)
type Contact struct {
	ID        int       `json:"id"`
	ProjectID int       `json:"project_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactInput carries the editable fields of a contact
type ContactInput struct {
	ProjectID int
	Name      string
	Email     string
	Phone     string
	Position  string
}
