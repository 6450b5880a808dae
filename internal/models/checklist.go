package models

import "time"

// ChecklistTemplate is a named, ordered list of inspection fields with a mandatory subset
type ChecklistTemplate struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Fields    []string  `json:"fields"`
	Mandatory []string  `json:"mandatory"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsMandatory reports whether field is in the mandatory subset
func (t *ChecklistTemplate) IsMandatory(field string) bool {
	for _, m := range t.Mandatory {
		if m == field {
			return true
		}
	}
	return false
}

// HasField reports whether field is one of the template labels
func (t *ChecklistTemplate) HasField(field string) bool {
	for _, f := range t.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ChecklistDefinition is the editable part of a template, validated before it is stored
type ChecklistDefinition struct {
	Name      string   `json:"name"`
	Fields    []string `json:"fields"`
	Mandatory []string `json:"mandatory"`
	Active    bool     `json:"active"`
}
