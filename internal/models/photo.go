package models

import "time"

// DefaultServiceType tags photos uploaded without a category
const DefaultServiceType = "General"

// Photo is an image attached to exactly one report
type Photo struct {
	ID          int       `json:"id"`
	ReportID    int       `json:"report_id"`
	ServiceType string    `json:"service_type"`
	FileName    string    `json:"file_name"`
	SizeBytes   int64     `json:"size_bytes"`
	Description string    `json:"description"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// PhotoInput is an uploaded image with its caption fields
type PhotoInput struct {
	FileName    string
	ServiceType string
	Description string
	Data        []byte
}
