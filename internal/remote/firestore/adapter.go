package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/remote"
)

// Save writes the event as a new document and returns the generated
// document id, which becomes the event's remoteId locally.
func (c *Client) Save(ctx context.Context, event domain.Event) (string, error) {
	ref, _, err := c.events().Add(ctx, docData(event))
	if err != nil {
		return "", fmt.Errorf("failed to save event to firestore: %w", err)
	}

	c.log.Info("Event saved to Firestore",
		zap.String("event_id", event.ID),
		zap.String("remote_id", ref.ID))
	return ref.ID, nil
}

// Load returns the full remote collection. Each returned event keeps the
// local id embedded in the document and carries the document id as its
// remoteId, so the reconciler can match it against local copies either way.
func (c *Client) Load(ctx context.Context) ([]domain.Event, error) {
	docs, err := c.events().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load events from firestore: %w", err)
	}

	events := make([]domain.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, eventFromDoc(doc.Ref.ID, doc.Data()))
	}

	c.log.Info("Events loaded from Firestore", zap.Int("count", len(events)))
	return events, nil
}

// Update applies the non-nil patch fields to an existing document.
func (c *Client) Update(ctx context.Context, remoteID string, patch domain.EventPatch) error {
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}

	if _, err := c.events().Doc(remoteID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update event %s in firestore: %w", remoteID, err)
	}

	c.log.Info("Event updated in Firestore", zap.String("remote_id", remoteID))
	return nil
}

// Delete removes a document. A document that is already gone counts as
// deleted; a conflicting local delete may have raced an earlier one.
func (c *Client) Delete(ctx context.Context, remoteID string) error {
	if _, err := c.events().Doc(remoteID).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("failed to delete event %s from firestore: %w", remoteID, err)
	}

	c.log.Info("Event deleted from Firestore", zap.String("remote_id", remoteID))
	return nil
}

// Available reports whether the adapter holds a live connection.
func (c *Client) Available() bool {
	return c.client != nil
}

// Subscribe streams the full collection on every remote change.
func (c *Client) Subscribe(ctx context.Context) (remote.Subscription, error) {
	iter := c.events().Snapshots(ctx)

	sub := &subscription{
		ch:   make(chan []domain.Event, 1),
		stop: iter.Stop,
	}

	go func() {
		defer close(sub.ch)
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					c.log.Warn("Firestore snapshot stream ended", zap.Error(err))
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				c.log.Warn("Failed to read snapshot documents", zap.Error(err))
				continue
			}

			events := make([]domain.Event, 0, len(docs))
			for _, doc := range docs {
				events = append(events, eventFromDoc(doc.Ref.ID, doc.Data()))
			}

			select {
			case sub.ch <- events:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

type subscription struct {
	ch   chan []domain.Event
	stop func()
}

func (s *subscription) Events() <-chan []domain.Event {
	return s.ch
}

func (s *subscription) Close() {
	s.stop()
}

// docData flattens an event into the document shape. The remoteId is
// stripped: the document id is the remote identity.
func docData(ev domain.Event) map[string]any {
	data := map[string]any{
		"id":          ev.ID,
		"title":       ev.Title,
		"date":        ev.Date,
		"category":    string(ev.Category),
		"isRecurring": ev.IsRecurring(),
		"createdAt":   ev.CreatedAt,
		"updatedAt":   ev.UpdatedAt,
	}
	if ev.Time != "" {
		data["time"] = ev.Time
	}
	if ev.Description != "" {
		data["description"] = ev.Description
	}
	if ev.IsRecurring() {
		data["recurrenceType"] = string(ev.Recurrence)
	}
	if ev.ParentEventID != "" {
		data["parentEventId"] = ev.ParentEventID
	}
	return data
}

func eventFromDoc(docID string, data map[string]any) domain.Event {
	ev := domain.Event{
		ID:            str(data, "id"),
		RemoteID:      docID,
		Title:         str(data, "title"),
		Date:          str(data, "date"),
		Time:          str(data, "time"),
		Category:      domain.Category(str(data, "category")),
		Description:   str(data, "description"),
		ParentEventID: str(data, "parentEventId"),
		CreatedAt:     str(data, "createdAt"),
		UpdatedAt:     str(data, "updatedAt"),
	}
	if ev.ID == "" {
		ev.ID = docID
	}
	if recurring, _ := data["isRecurring"].(bool); recurring {
		ev.Recurrence = domain.RecurrenceType(str(data, "recurrenceType"))
	}
	return ev
}

func patchUpdates(patch domain.EventPatch) []firestore.Update {
	var updates []firestore.Update
	if patch.Title != nil {
		updates = append(updates, firestore.Update{Path: "title", Value: *patch.Title})
	}
	if patch.Date != nil {
		updates = append(updates, firestore.Update{Path: "date", Value: *patch.Date})
	}
	if patch.Time != nil {
		updates = append(updates, firestore.Update{Path: "time", Value: *patch.Time})
	}
	if patch.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: string(*patch.Category)})
	}
	if patch.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *patch.Description})
	}
	if patch.Recurrence != nil {
		updates = append(updates,
			firestore.Update{Path: "isRecurring", Value: *patch.Recurrence != domain.RecurrenceNone},
			firestore.Update{Path: "recurrenceType", Value: string(*patch.Recurrence)})
	}
	return updates
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
