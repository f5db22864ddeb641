package remote

import (
	"context"
	"errors"

	"github.com/mikecinchan/calendar/internal/domain"
)

// ErrUnavailable is returned by the Unavailable adapter when a caller
// ignores Available() and issues a remote call anyway.
var ErrUnavailable = errors.New("remote store unavailable")

// Unavailable is the permanent-offline adapter used when no remote store
// is configured. The service treats it as a steady state, not an error:
// every remote call site checks Available() and skips silently.
type Unavailable struct{}

func (Unavailable) Save(context.Context, domain.Event) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Load(context.Context) ([]domain.Event, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Update(context.Context, string, domain.EventPatch) error {
	return ErrUnavailable
}

func (Unavailable) Delete(context.Context, string) error {
	return ErrUnavailable
}

func (Unavailable) Available() bool {
	return false
}

func (Unavailable) Subscribe(context.Context) (Subscription, error) {
	return nil, ErrUnavailable
}
