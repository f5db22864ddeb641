package remote

import (
	"context"

	"github.com/mikecinchan/calendar/internal/domain"
)

// Store is the boundary to the remote document collection mirroring the
// local event set. Every operation may fail; a failure never rolls back
// the local mutation it was mirroring. When Available reports false the
// system is in its steady offline state and callers skip all remote
// calls silently.
type Store interface {
	// Save writes a new document and returns the remote id it was
	// assigned. The event's own remoteId field is never written remotely.
	Save(ctx context.Context, event domain.Event) (string, error)

	// Load returns the full remote collection.
	Load(ctx context.Context) ([]domain.Event, error)

	// Update applies a partial update to an existing document.
	Update(ctx context.Context, remoteID string, patch domain.EventPatch) error

	// Delete removes a document. Deleting an already-absent document is
	// not an error.
	Delete(ctx context.Context, remoteID string) error

	// Available reports whether the remote side is reachable at all.
	Available() bool

	// Subscribe streams full-collection snapshots on every remote
	// change. The caller must Close the subscription when done.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers remote collection snapshots. The channel is
// closed when the subscription ends, whether by Close or by error.
type Subscription interface {
	// Events yields the full remote collection each time it changes.
	Events() <-chan []domain.Event

	// Close stops the subscription.
	Close()
}
