package dto

// CreateEventRequest represents a create event request
type CreateEventRequest struct {
	Title          string `json:"title" binding:"required" example:"Team meeting"`
	Date           string `json:"date" binding:"required" example:"2025-03-10"`
	Time           string `json:"time" example:"14:30"`
	Category       string `json:"category" binding:"required" example:"personal"`
	Description    string `json:"description" example:"Quarterly planning"`
	RecurrenceType string `json:"recurrenceType" example:"annual"`
}

// UpdateEventRequest represents a partial event update; omitted fields
// keep their current values
type UpdateEventRequest struct {
	Title          *string `json:"title,omitempty"`
	Date           *string `json:"date,omitempty"`
	Time           *string `json:"time,omitempty"`
	Category       *string `json:"category,omitempty"`
	Description    *string `json:"description,omitempty"`
	RecurrenceType *string `json:"recurrenceType,omitempty"`
}

// EventQueryParams represents the filter options on event listings
type EventQueryParams struct {
	Category string `form:"category" example:"holiday"`
	Start    string `form:"start" example:"2025-03-01"`
	End      string `form:"end" example:"2025-03-31"`
	Preset   string `form:"preset" example:"thisMonth"`
	Search   string `form:"search" example:"party"`
}

// SaveStateRequest represents a view state save
type SaveStateRequest struct {
	CurrentDate    string `json:"currentDate" binding:"required"`
	ViewMode       string `json:"viewMode" binding:"required" example:"single"`
	SelectedDate   string `json:"selectedDate"`
	CategoryFilter string `json:"categoryFilter"`
}
