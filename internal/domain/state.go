package domain

// ViewMode selects how the presentation layer lays out the grid.
type ViewMode string

const (
	ViewSingle ViewMode = "single"
	ViewMulti  ViewMode = "multi"
)

// CalendarState is the persisted view state: which month is open, the
// grid mode, the selected day, and the sticky category filter.
type CalendarState struct {
	CurrentDate    string   `json:"currentDate"`
	ViewMode       ViewMode `json:"viewMode"`
	SelectedDate   string   `json:"selectedDate,omitempty"`
	CategoryFilter Category `json:"categoryFilter,omitempty"`
}

// Backup is the versioned snapshot written under the backup key. A new
// backup overwrites any prior one.
type Backup struct {
	Version       string        `json:"version"`
	BackupDate    string        `json:"backupDate"`
	Events        []Event       `json:"events"`
	CalendarState CalendarState `json:"calendarState"`
}

// BackupVersion tags snapshots written by this build.
const BackupVersion = "1.0"
