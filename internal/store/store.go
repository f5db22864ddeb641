// Package store owns the canonical in-memory event collection. No other
// component mutates it; everything else works on snapshots or calls the
// store's methods. Every mutation is written through to the durable
// local repository before it returns.
package store

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/repository"
)

// yearSuffix matches the " (YYYY)" tail appended to annual recurrence
// instances, used only by the legacy title-based cascade fallback.
var yearSuffix = regexp.MustCompile(` \(\d{4}\)$`)

// Store is the authoritative local event collection. Order is insertion
// order; display ordering is a presentation concern.
type Store struct {
	mu     sync.RWMutex
	events []domain.Event
	local  repository.LocalState
	log    *zap.Logger
	now    func() time.Time
}

// New creates an empty store backed by the given local repository.
func New(local repository.LocalState, log *zap.Logger) *Store {
	return &Store{
		events: []domain.Event{},
		local:  local,
		log:    log,
		now:    time.Now,
	}
}

// Hydrate replaces the in-memory collection with whatever the local
// repository holds. Called once at startup before any reads.
func (s *Store) Hydrate(ctx context.Context) error {
	events, err := s.local.LoadEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local events: %w", err)
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	s.log.Info("Local events loaded", zap.Int("count", len(events)))
	return nil
}

// Create appends the given events and persists. It fails only on local
// problems (duplicate id, storage error); remote state is irrelevant here.
func (s *Store) Create(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.events)+len(events))
	for _, existing := range s.events {
		ids[existing.ID] = struct{}{}
	}
	for _, ev := range events {
		if _, dup := ids[ev.ID]; dup {
			return &domain.ValidationError{Field: "id", Message: "duplicate event id " + ev.ID}
		}
		ids[ev.ID] = struct{}{}
	}

	next := make([]domain.Event, 0, len(s.events)+len(events))
	next = append(next, s.events...)
	next = append(next, events...)

	if err := s.local.SaveEvents(ctx, next); err != nil {
		return fmt.Errorf("failed to persist events: %w", err)
	}
	s.events = next
	return nil
}

// Update replaces the record with a shallow merge of the existing fields
// and the patch, persists, and returns the updated record.
func (s *Store) Update(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return domain.Event{}, &domain.NotFoundError{ID: id}
	}

	updated := patch.Apply(s.events[idx], s.now())
	if err := updated.Validate(); err != nil {
		return domain.Event{}, err
	}

	next := make([]domain.Event, len(s.events))
	copy(next, s.events)
	next[idx] = updated

	if err := s.local.SaveEvents(ctx, next); err != nil {
		return domain.Event{}, fmt.Errorf("failed to persist events: %w", err)
	}
	s.events = next
	return updated, nil
}

// Delete removes the event and, for recurring events, its whole family.
// It returns the removed records so the caller can mirror the deletions
// remotely. Confirmation of multi-member cascades is the caller's job;
// the store just deletes what it is asked to delete.
func (s *Store) Delete(ctx context.Context, id string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, &domain.NotFoundError{ID: id}
	}

	doomed := s.cascadeLocked(s.events[idx])
	drop := make(map[string]struct{}, len(doomed))
	for _, ev := range doomed {
		drop[ev.ID] = struct{}{}
	}

	next := make([]domain.Event, 0, len(s.events)-len(doomed))
	for _, ev := range s.events {
		if _, gone := drop[ev.ID]; !gone {
			next = append(next, ev)
		}
	}

	if err := s.local.SaveEvents(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist events: %w", err)
	}
	s.events = next

	s.log.Info("Events deleted",
		zap.String("event_id", id),
		zap.Int("cascade_count", len(doomed)))
	return doomed, nil
}

// CascadeSet returns the records Delete(id) would remove, so the
// presentation layer can ask for confirmation before a family delete.
func (s *Store) CascadeSet(id string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, &domain.NotFoundError{ID: id}
	}
	return s.cascadeLocked(s.events[idx]), nil
}

// AttachRemoteID records the remote identifier assigned by a completed
// remote save. A late attach to an already-deleted event is silently
// dropped; the reporting remote write simply outlived its record.
func (s *Store) AttachRemoteID(ctx context.Context, id, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.log.Debug("Dropping remote id for deleted event",
			zap.String("event_id", id),
			zap.String("remote_id", remoteID))
		return false
	}

	next := make([]domain.Event, len(s.events))
	copy(next, s.events)
	next[idx].RemoteID = remoteID

	if err := s.local.SaveEvents(ctx, next); err != nil {
		s.log.Warn("Failed to persist remote id", zap.Error(err))
		return false
	}
	s.events = next
	return true
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return domain.Event{}, false
	}
	return s.events[idx], true
}

// Snapshot returns a copy of the collection in insertion order.
func (s *Store) Snapshot() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// ReplaceAll swaps in a whole new collection (merge results, restores,
// replace-mode imports) and persists it.
func (s *Store) ReplaceAll(ctx context.Context, events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Event, len(events))
	copy(next, events)

	if err := s.local.SaveEvents(ctx, next); err != nil {
		return fmt.Errorf("failed to persist events: %w", err)
	}
	s.events = next
	return nil
}

func (s *Store) indexOfLocked(id string) int {
	for i, ev := range s.events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

// cascadeLocked resolves the set of records a delete of ev removes.
// Lineage (parentEventId in either direction) is authoritative; matching
// on the reconstructed base title is kept only as a fallback for records
// written before lineage links existed, since a legitimate title can end
// in a parenthesized year.
func (s *Store) cascadeLocked(ev domain.Event) []domain.Event {
	if !ev.IsRecurring() && ev.ParentEventID == "" {
		return []domain.Event{ev}
	}

	var lineage []domain.Event
	for _, e := range s.events {
		switch {
		case e.ID == ev.ID:
			lineage = append(lineage, e)
		case ev.ParentEventID != "" && (e.ParentEventID == ev.ParentEventID || e.ID == ev.ParentEventID):
			lineage = append(lineage, e)
		case e.ParentEventID == ev.ID:
			lineage = append(lineage, e)
		}
	}
	if len(lineage) > 1 {
		return lineage
	}

	baseTitle := yearSuffix.ReplaceAllString(ev.Title, "")
	var related []domain.Event
	for _, e := range s.events {
		if e.ID == ev.ID {
			related = append(related, e)
			continue
		}
		if e.IsRecurring() && e.Category == ev.Category &&
			yearSuffix.ReplaceAllString(e.Title, "") == baseTitle {
			related = append(related, e)
		}
	}
	return related
}
