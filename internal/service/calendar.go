package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/merge"
	"github.com/mikecinchan/calendar/internal/query"
	"github.com/mikecinchan/calendar/internal/recurrence"
	"github.com/mikecinchan/calendar/internal/remote"
	"github.com/mikecinchan/calendar/internal/repository"
	"github.com/mikecinchan/calendar/internal/store"
)

// Sync warning texts surfaced to the caller when a best-effort remote
// write fails. Local state is already committed when these appear.
const (
	warnSaveFailed   = "event saved locally but failed to sync with cloud storage"
	warnUpdateFailed = "event updated locally but failed to sync with cloud storage"
	warnDeleteFailed = "event deleted locally but failed to sync with cloud storage"
)

// CalendarService orchestrates the event store, the recurrence expander,
// and the remote sync adapter. Local mutations commit first and always
// succeed or fail on their own; remote mirroring is best effort.
type CalendarService struct {
	store  *store.Store
	remote remote.Store
	local  repository.LocalState
	engine *query.Engine
	log    *zap.Logger
	now    func() time.Time
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(st *store.Store, rs remote.Store, local repository.LocalState, engine *query.Engine, log *zap.Logger) *CalendarService {
	return &CalendarService{
		store:  st,
		remote: rs,
		local:  local,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
}

// Load hydrates the store from the durable local cache and, when the
// remote side is reachable, reconciles the remote collection in (remote
// wins) and persists the merged set. A remote failure leaves the local
// set untouched and is only a warning.
func (s *CalendarService) Load(ctx context.Context) error {
	if err := s.store.Hydrate(ctx); err != nil {
		return err
	}

	if !s.remote.Available() {
		s.log.Info("Remote store unavailable, running local-only")
		return nil
	}

	remoteEvents, err := s.remote.Load(ctx)
	if err != nil {
		s.log.Warn("Failed to load remote events, keeping local set",
			zap.Error(&domain.RemoteError{Op: "load", Err: err}))
		return nil
	}

	merged := merge.Merge(s.store.Snapshot(), remoteEvents)
	if err := s.store.ReplaceAll(ctx, merged); err != nil {
		return err
	}
	s.engine.Invalidate()

	s.log.Info("Events reconciled with remote",
		zap.Int("remote", len(remoteEvents)),
		zap.Int("merged", len(merged)))
	return nil
}

// ProcessCreate validates and stores a new event, expanding recurring
// events into their concrete instances, then mirrors the new records to
// the remote store best effort.
func (s *CalendarService) ProcessCreate(ctx context.Context, event domain.Event) (*CreateResult, error) {
	now := s.now()
	if event.ID == "" {
		event.ID = domain.NewID()
	}
	event.RemoteID = ""
	event.CreatedAt = domain.Timestamp(now)
	event.UpdatedAt = domain.Timestamp(now)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	events := recurrence.Expand(event, now)
	if len(events) == 0 {
		events = []domain.Event{event}
	}

	if err := s.store.Create(ctx, events...); err != nil {
		return nil, err
	}
	s.engine.Invalidate()

	warning := s.saveRemote(ctx, events)

	// Re-read: successful remote saves have attached remote ids.
	created := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if current, ok := s.store.Get(ev.ID); ok {
			created = append(created, current)
		}
	}

	s.log.Info("Events created",
		zap.String("title", event.Title),
		zap.Int("count", len(created)),
		zap.Bool("recurring", event.IsRecurring()))

	return &CreateResult{Events: created, SyncWarning: warning}, nil
}

// ProcessUpdate applies a shallow patch to one event locally, then
// mirrors it to the remote copy when one exists.
func (s *CalendarService) ProcessUpdate(ctx context.Context, id string, patch domain.EventPatch) (*UpdateResult, error) {
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.engine.Invalidate()

	var warning string
	if updated.RemoteID != "" && s.remote.Available() {
		if err := s.remote.Update(ctx, updated.RemoteID, patch); err != nil {
			s.log.Warn("Failed to update event in remote store",
				zap.String("event_id", id),
				zap.String("remote_id", updated.RemoteID),
				zap.Error(&domain.RemoteError{Op: "update", Err: err}))
			warning = warnUpdateFailed
		}
	}

	s.log.Info("Event updated", zap.String("event_id", id))
	return &UpdateResult{Event: updated, SyncWarning: warning}, nil
}

// ProcessDelete removes an event and its recurrence family locally, then
// deletes every removed record's remote copy best effort. Confirmation
// of multi-member cascades happens at the presentation boundary before
// this is called.
func (s *CalendarService) ProcessDelete(ctx context.Context, id string) (*DeleteResult, error) {
	doomed, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.engine.Invalidate()

	var warning string
	if s.remote.Available() {
		for _, ev := range doomed {
			if ev.RemoteID == "" {
				continue
			}
			if err := s.remote.Delete(ctx, ev.RemoteID); err != nil {
				s.log.Warn("Failed to delete event from remote store",
					zap.String("event_id", ev.ID),
					zap.String("remote_id", ev.RemoteID),
					zap.Error(&domain.RemoteError{Op: "delete", Err: err}))
				warning = warnDeleteFailed
			}
		}
	}

	return &DeleteResult{Deleted: len(doomed), SyncWarning: warning}, nil
}

// CascadePreview returns how many records deleting the given event would
// remove, so the caller can confirm family deletions first.
func (s *CalendarService) CascadePreview(id string) (int, error) {
	set, err := s.store.CascadeSet(id)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// Events returns a snapshot of the full event set in insertion order.
func (s *CalendarService) Events() []domain.Event {
	return s.store.Snapshot()
}

// Query returns the filtered subset of the full event set.
func (s *CalendarService) Query(filters query.Filters) []domain.Event {
	return query.Apply(s.store.Snapshot(), filters)
}

// EventsForDay returns the filtered events on one day through the
// memoized per-day index.
func (s *CalendarService) EventsForDay(filters query.Filters, year int, month time.Month, day int) []domain.Event {
	return s.engine.EventsForDay(s.store.Snapshot(), filters, year, month, day)
}

// State returns the persisted view state, defaulting to a fresh
// single-month view when none has been saved.
func (s *CalendarService) State(ctx context.Context) (*domain.CalendarState, error) {
	state, err := s.local.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &domain.CalendarState{
			CurrentDate: domain.Timestamp(s.now()),
			ViewMode:    domain.ViewSingle,
		}
	}
	return state, nil
}

// SaveState persists the view state.
func (s *CalendarService) SaveState(ctx context.Context, state domain.CalendarState) error {
	if state.ViewMode != domain.ViewSingle && state.ViewMode != domain.ViewMulti {
		return &domain.ValidationError{Field: "viewMode", Message: "must be single or multi"}
	}
	if state.CategoryFilter != "" && !state.CategoryFilter.Valid() {
		return &domain.ValidationError{Field: "categoryFilter", Message: "unknown category"}
	}
	return s.local.SaveState(ctx, state)
}

// SyncEvents pushes events that have no remote id yet to the remote
// store, best effort. Used for imported and restored sets.
func (s *CalendarService) SyncEvents(ctx context.Context, events []domain.Event) {
	s.saveRemote(ctx, events)
}

// WatchRemote consumes the remote subscription and re-runs the merge on
// every pushed snapshot until the context is cancelled or the stream
// ends. With no remote configured it returns immediately.
func (s *CalendarService) WatchRemote(ctx context.Context) error {
	if !s.remote.Available() {
		s.log.Info("Remote store unavailable, watch disabled")
		return nil
	}

	sub, err := s.remote.Subscribe(ctx)
	if err != nil {
		return &domain.RemoteError{Op: "subscribe", Err: err}
	}
	defer sub.Close()

	s.log.Info("Watching remote collection")

	for {
		select {
		case <-ctx.Done():
			return nil
		case remoteEvents, ok := <-sub.Events():
			if !ok {
				s.log.Info("Remote subscription closed")
				return nil
			}

			merged := merge.Merge(s.store.Snapshot(), remoteEvents)
			if err := s.store.ReplaceAll(ctx, merged); err != nil {
				s.log.Error("Failed to persist merged events", zap.Error(err))
				continue
			}
			s.engine.Invalidate()

			s.log.Info("Remote snapshot merged",
				zap.Int("remote", len(remoteEvents)),
				zap.Int("merged", len(merged)))
		}
	}
}

// saveRemote mirrors events without a remote id to the remote store and
// attaches the assigned ids. Returns a warning message when any save
// failed; silent when the remote side is simply unavailable.
func (s *CalendarService) saveRemote(ctx context.Context, events []domain.Event) string {
	if !s.remote.Available() {
		return ""
	}

	var warning string
	for _, ev := range events {
		if ev.RemoteID != "" {
			continue
		}

		remoteID, err := s.remote.Save(ctx, ev)
		if err != nil {
			s.log.Warn("Failed to save event to remote store",
				zap.String("event_id", ev.ID),
				zap.Error(&domain.RemoteError{Op: "save", Err: err}))
			warning = warnSaveFailed
			continue
		}

		// A late id for a just-deleted event is dropped by the store.
		s.store.AttachRemoteID(ctx, ev.ID, remoteID)
	}
	return warning
}
