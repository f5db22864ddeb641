package dto

import "github.com/mikecinchan/calendar/internal/domain"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"title is required"`
}

// ConfirmationRequiredResponse is returned when a delete or restore
// needs explicit confirmation before it runs
type ConfirmationRequiredResponse struct {
	Error   string `json:"error" example:"confirmation_required"`
	Count   int    `json:"count,omitempty" example:"5"`
	Message string `json:"message"`
}

// ListEventsResponse represents an event listing
type ListEventsResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

// CreateEventResponse represents a successful create, including every
// generated recurrence instance
type CreateEventResponse struct {
	Events      []domain.Event `json:"events"`
	Count       int            `json:"count"`
	SyncWarning string         `json:"syncWarning,omitempty"`
}

// UpdateEventResponse represents a successful update
type UpdateEventResponse struct {
	Event       domain.Event `json:"event"`
	SyncWarning string       `json:"syncWarning,omitempty"`
}

// DeleteEventResponse represents a successful delete
type DeleteEventResponse struct {
	Deleted     int    `json:"deleted"`
	SyncWarning string `json:"syncWarning,omitempty"`
}

// ImportResponse represents a successful import
type ImportResponse struct {
	Imported int    `json:"imported"`
	Status   string `json:"status" example:"imported"`
}

// BackupResponse represents a successful backup
type BackupResponse struct {
	BackupDate string `json:"backupDate"`
	Events     int    `json:"events"`
}

// RestoreResponse represents a successful restore
type RestoreResponse struct {
	BackupDate string `json:"backupDate"`
	Events     int    `json:"events"`
}
