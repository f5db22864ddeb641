package repository

import (
	"context"

	"github.com/mikecinchan/calendar/internal/domain"
)

// Durable key names in the local state store.
const (
	KeyEvents = "calendarEvents"
	KeyState  = "calendarState"
	KeyBackup = "calendarBackup"
)

// LocalState is the durable local key-value store backing the event
// cache, the persisted view state, and the backup snapshot. Writes are
// synchronous: when a call returns, the data is on disk.
type LocalState interface {
	// SaveEvents overwrites the serialized event sequence.
	SaveEvents(ctx context.Context, events []domain.Event) error

	// LoadEvents returns the stored event sequence; an empty slice when
	// nothing has been saved yet.
	LoadEvents(ctx context.Context) ([]domain.Event, error)

	// SaveState overwrites the persisted view state.
	SaveState(ctx context.Context, state domain.CalendarState) error

	// LoadState returns the persisted view state, or nil when absent.
	LoadState(ctx context.Context) (*domain.CalendarState, error)

	// SaveBackup overwrites the single backup snapshot.
	SaveBackup(ctx context.Context, backup domain.Backup) error

	// LoadBackup returns the backup snapshot, or nil when absent.
	LoadBackup(ctx context.Context) (*domain.Backup, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying handle.
	Close() error
}
