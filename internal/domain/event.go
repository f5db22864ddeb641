package domain

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for day bucketing.
const DateLayout = "2006-01-02"

// TimeLayout is the optional 24-hour clock format on an event.
const TimeLayout = "15:04"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Category is the closed set of event categories.
type Category string

const (
	CategoryBirthday      Category = "birthday"
	CategoryEntertainment Category = "entertainment"
	CategoryHoliday       Category = "holiday"
	CategoryPersonal      Category = "personal"
	CategoryCrypto        Category = "crypto"
	CategoryExpense       Category = "expense"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryBirthday,
	CategoryEntertainment,
	CategoryHoliday,
	CategoryPersonal,
	CategoryCrypto,
	CategoryExpense,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// RecurrenceType identifies the cadence of a recurring event. The zero
// value means the event does not recur, so the invalid combination
// "not recurring but has a cadence" is unrepresentable.
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = ""
	RecurrenceAnnual  RecurrenceType = "annual"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// Event is a single calendar entry. The local ID is assigned at creation
// and never changes; RemoteID is attached only after the record has been
// confirmed persisted in the remote collection.
type Event struct {
	ID            string
	RemoteID      string
	Title         string
	Date          string
	Time          string
	Category      Category
	Description   string
	Recurrence    RecurrenceType
	ParentEventID string
	CreatedAt     string
	UpdatedAt     string
}

// IsRecurring reports whether the event carries a recurrence cadence.
func (e Event) IsRecurring() bool {
	return e.Recurrence != RecurrenceNone
}

// Day returns the event's calendar date.
func (e Event) Day() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// Validate checks the invariants a stored event must satisfy.
func (e Event) Validate() error {
	if e.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if !dateRe.MatchString(e.Date) {
		return &ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return &ValidationError{Field: "date", Message: "date is not a valid calendar date"}
	}
	if !e.Category.Valid() {
		return &ValidationError{Field: "category", Message: "unknown category: " + string(e.Category)}
	}
	if e.Time != "" {
		if _, err := time.Parse(TimeLayout, e.Time); err != nil {
			return &ValidationError{Field: "time", Message: "time must be HH:MM"}
		}
	}
	return nil
}

// eventWire is the serialized shape: the recurrence sum is flattened into
// the isRecurring/recurrenceType pair the portable format uses.
type eventWire struct {
	ID             string   `json:"id"`
	RemoteID       string   `json:"remoteId,omitempty"`
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	Time           string   `json:"time,omitempty"`
	Category       Category `json:"category"`
	Description    string   `json:"description,omitempty"`
	IsRecurring    bool     `json:"isRecurring"`
	RecurrenceType string   `json:"recurrenceType,omitempty"`
	ParentEventID  string   `json:"parentEventId,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		ID:             e.ID,
		RemoteID:       e.RemoteID,
		Title:          e.Title,
		Date:           e.Date,
		Time:           e.Time,
		Category:       e.Category,
		Description:    e.Description,
		IsRecurring:    e.IsRecurring(),
		RecurrenceType: string(e.Recurrence),
		ParentEventID:  e.ParentEventID,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		ID:            w.ID,
		RemoteID:      w.RemoteID,
		Title:         w.Title,
		Date:          w.Date,
		Time:          w.Time,
		Category:      w.Category,
		Description:   w.Description,
		ParentEventID: w.ParentEventID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
	if w.IsRecurring {
		e.Recurrence = RecurrenceType(w.RecurrenceType)
	}
	return nil
}

// NewID generates a fresh local event identifier.
func NewID() string {
	return "evt_" + uuid.NewString()
}

// Timestamp renders t in the ISO form stored on createdAt/updatedAt.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// EventPatch is a partial event used by shallow-merge updates. Nil fields
// leave the existing value untouched.
type EventPatch struct {
	Title       *string         `json:"title,omitempty"`
	Date        *string         `json:"date,omitempty"`
	Time        *string         `json:"time,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Recurrence  *RecurrenceType `json:"recurrenceType,omitempty"`
}

// Apply shallow-merges the patch into e and returns the result. The id,
// remoteId, parent lineage, and createdAt are never patched.
func (p EventPatch) Apply(e Event, now time.Time) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Recurrence != nil {
		e.Recurrence = *p.Recurrence
	}
	e.UpdatedAt = Timestamp(now)
	return e
}
