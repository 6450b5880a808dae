// Package models defines data structures used throughout the site reporting application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Role names a user's capability level
type Role string

const (
	// RoleAdmin can review, approve and reject reports and manage projects
	RoleAdmin Role = "admin"
	// RoleUser submits reports for the projects they are responsible for
	RoleUser Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents a user in the system
type User struct {
	ID           int       `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Email        string    `json:"email" yaml:"email"`
	PasswordHash string    `json:"-" yaml:"-"` // Omit from JSON responses
	Role         Role      `json:"role" yaml:"role"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Actor is the authenticated identity performing an operation.
// Services treat it as a capability check only.
type Actor struct {
	UserID int
	Role   Role
}

// NewActor builds an Actor from a loaded user
func NewActor(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is userID or an administrator
func (a Actor) Owns(userID int) bool {
	return a.IsAdmin() || a.UserID == userID
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt64ToPointer(ni sql.NullInt64) *int64 {
	if ni.Valid {
		return &ni.Int64
	}
	return nil
}

func nullFloat64ToPointer(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}

// marshalWith is a small helper so MarshalJSON implementations read the same way
func marshalWith(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
