package handlers

import (
	"strings"
	"time"

	"siteworks/internal/models"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// dateValue converts an optional API date into the time the services expect
func dateValue(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

func (r ProjectRequest) toInput() models.ProjectInput {
	return models.ProjectInput{
		Name:          r.Name,
		Type:          r.Type,
		ResponsibleID: r.ResponsibleID,
		Status:        r.Status,
		StartDate:     dateValue(r.StartDate),
		EndDate:       dateValue(r.EndDate),
		Address:       r.Address,
		GPSAddress:    r.GPSAddress,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		Description:   r.Description,
	}
}

func (r ReportRequest) toInput() models.ReportInput {
	return models.ReportInput{
		ProjectID:   r.ProjectID,
		ReportDate:  dateValue(r.ReportDate),
		Activities:  r.Activities,
		ChecklistID: r.ChecklistID,
		Checklist:   r.Checklist,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
}

func (r RejectRequest) toInput() models.RejectInput {
	return models.RejectInput{
		Remarks:      r.Remarks,
		Deadline:     r.Deadline,
		RevisionDays: r.RevisionDays,
	}
}

// toDefinition builds a template definition. New templates are active unless stated otherwise.
func (r ChecklistRequest) toDefinition() models.ChecklistDefinition {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.ChecklistDefinition{
		Name:      r.Name,
		Fields:    r.Fields,
		Mandatory: r.Mandatory,
		Active:    active,
	}
}

func (r ContactRequest) toInput() models.ContactInput {
	return models.ContactInput{
		ProjectID: r.ProjectID,
		Name:      r.Name,
		Email:     strings.TrimSpace(r.Email),
		Phone:     r.Phone,
		Position:  r.Position,
	}
}
