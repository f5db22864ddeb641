package service

import (
	"context"
	"time"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/query"
)

// CalendarServicer is the operation contract the presentation layer
// calls into.
type CalendarServicer interface {
	ProcessCreate(ctx context.Context, event domain.Event) (*CreateResult, error)
	ProcessUpdate(ctx context.Context, id string, patch domain.EventPatch) (*UpdateResult, error)
	ProcessDelete(ctx context.Context, id string) (*DeleteResult, error)
	CascadePreview(id string) (int, error)
	Events() []domain.Event
	Query(filters query.Filters) []domain.Event
	EventsForDay(filters query.Filters, year int, month time.Month, day int) []domain.Event
	State(ctx context.Context) (*domain.CalendarState, error)
	SaveState(ctx context.Context, state domain.CalendarState) error
}

// CreateResult reports a create: the concrete records stored (one, or
// the expanded recurrence family) and a non-fatal sync warning when the
// best-effort remote write failed.
type CreateResult struct {
	Events      []domain.Event
	SyncWarning string
}

// UpdateResult reports an update.
type UpdateResult struct {
	Event       domain.Event
	SyncWarning string
}

// DeleteResult reports a delete and how many records the cascade removed.
type DeleteResult struct {
	Deleted     int
	SyncWarning string
}
