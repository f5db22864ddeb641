// Package pipeline serializes the event set to the portable export
// format and restores or merges it back.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/recurrence"
	"github.com/mikecinchan/calendar/internal/repository"
	"github.com/mikecinchan/calendar/internal/store"
)

// ExportVersion tags export envelopes written by this build.
const ExportVersion = "1.0"

// ExportData is the portable export envelope. Remote identifiers are
// stripped before export; an export never leaks store internals.
type ExportData struct {
	Version     string         `json:"version"`
	ExportDate  string         `json:"exportDate"`
	TotalEvents int            `json:"totalEvents"`
	Events      []domain.Event `json:"events"`
}

// ImportMode selects what happens to the existing event set on import.
type ImportMode string

const (
	// ImportMerge appends the imported events and deduplicates.
	ImportMerge ImportMode = "merge"
	// ImportReplace discards the existing set first.
	ImportReplace ImportMode = "replace"
)

// Syncer re-attempts remote persistence for a batch of events, best
// effort. The service implements it; failures stay on the remote side.
type Syncer interface {
	SyncEvents(ctx context.Context, events []domain.Event)
}

// Manager is the import/export/backup surface the HTTP layer consumes.
type Manager interface {
	Export() *ExportData
	Import(ctx context.Context, data []byte, mode ImportMode) (int, error)
	Backup(ctx context.Context) (*domain.Backup, error)
	Restore(ctx context.Context) (*domain.Backup, error)
}

// Pipeline implements Manager against the event store and the durable
// local repository.
type Pipeline struct {
	store  *store.Store
	local  repository.LocalState
	syncer Syncer
	log    *zap.Logger
	now    func() time.Time
}

// NewPipeline creates the import/export/backup pipeline.
func NewPipeline(st *store.Store, local repository.LocalState, syncer Syncer, log *zap.Logger) *Pipeline {
	return &Pipeline{
		store:  st,
		local:  local,
		syncer: syncer,
		log:    log,
		now:    time.Now,
	}
}

// Export serializes the full event set with remote identifiers stripped.
func (p *Pipeline) Export() *ExportData {
	events := p.store.Snapshot()
	for i := range events {
		events[i].RemoteID = ""
	}

	return &ExportData{
		Version:     ExportVersion,
		ExportDate:  domain.Timestamp(p.now()),
		TotalEvents: len(events),
		Events:      events,
	}
}

// Import parses an export envelope and applies it in the given mode. A
// single invalid record rejects the whole import; no partial record set
// is ever merged in. Imported records always get fresh local ids, and
// recurring records are re-expanded. Returns the number of records added
// (after expansion, before deduplication).
func (p *Pipeline) Import(ctx context.Context, data []byte, mode ImportMode) (int, error) {
	var envelope ExportData
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0, &domain.ValidationError{Message: "invalid JSON: " + err.Error()}
	}
	if envelope.Events == nil {
		return 0, &domain.ValidationError{Field: "events", Message: "missing events array"}
	}
	for i, ev := range envelope.Events {
		if err := validateImported(ev); err != nil {
			return 0, &domain.ValidationError{
				Field:   fmt.Sprintf("events[%d]", i),
				Message: err.Error(),
			}
		}
	}

	now := p.now()
	processed := make([]domain.Event, 0, len(envelope.Events))
	for _, ev := range envelope.Events {
		cleaned := ev
		cleaned.ID = domain.NewID()
		cleaned.RemoteID = ""
		if cleaned.CreatedAt == "" {
			cleaned.CreatedAt = domain.Timestamp(now)
		}
		cleaned.UpdatedAt = domain.Timestamp(now)

		if instances := recurrence.Expand(cleaned, now); len(instances) > 0 {
			processed = append(processed, instances...)
		} else {
			processed = append(processed, cleaned)
		}
	}

	var combined []domain.Event
	if mode == ImportReplace {
		combined = processed
	} else {
		combined = append(p.store.Snapshot(), processed...)
	}
	combined = Dedupe(combined)

	if err := p.store.ReplaceAll(ctx, combined); err != nil {
		return 0, err
	}

	// Re-sync the imported records that survived deduplication.
	kept := make(map[string]struct{}, len(combined))
	for _, ev := range combined {
		kept[ev.ID] = struct{}{}
	}
	survivors := make([]domain.Event, 0, len(processed))
	for _, ev := range processed {
		if _, ok := kept[ev.ID]; ok {
			survivors = append(survivors, ev)
		}
	}
	if p.syncer != nil {
		p.syncer.SyncEvents(ctx, survivors)
	}

	p.log.Info("Import applied",
		zap.String("mode", string(mode)),
		zap.Int("imported", len(processed)),
		zap.Int("total", len(combined)))
	return len(processed), nil
}

// Backup snapshots the full event set plus the current view state under
// the fixed backup key, overwriting any prior backup.
func (p *Pipeline) Backup(ctx context.Context) (*domain.Backup, error) {
	state, err := p.local.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &domain.CalendarState{ViewMode: domain.ViewSingle}
	}

	backup := domain.Backup{
		Version:       domain.BackupVersion,
		BackupDate:    domain.Timestamp(p.now()),
		Events:        p.store.Snapshot(),
		CalendarState: *state,
	}

	if err := p.local.SaveBackup(ctx, backup); err != nil {
		return nil, err
	}

	p.log.Info("Backup created", zap.Int("events", len(backup.Events)))
	return &backup, nil
}

// Restore replaces the live event set and view state from the stored
// snapshot, then re-attempts remote sync for the restored set without
// blocking the caller. Confirmation happens at the presentation boundary
// before this is invoked.
func (p *Pipeline) Restore(ctx context.Context) (*domain.Backup, error) {
	backup, err := p.local.LoadBackup(ctx)
	if err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, &domain.NotFoundError{ID: repository.KeyBackup}
	}
	if backup.Events == nil {
		return nil, &domain.ValidationError{Field: "events", Message: "backup has no events array"}
	}

	if err := p.store.ReplaceAll(ctx, backup.Events); err != nil {
		return nil, err
	}
	if err := p.local.SaveState(ctx, backup.CalendarState); err != nil {
		return nil, err
	}

	if p.syncer != nil {
		restored := p.store.Snapshot()
		go p.syncer.SyncEvents(context.WithoutCancel(ctx), restored)
	}

	p.log.Info("Backup restored",
		zap.Int("events", len(backup.Events)),
		zap.String("backup_date", backup.BackupDate))
	return backup, nil
}

// Dedupe drops later events whose (title, date, category) triple was
// already seen. First occurrence wins.
func Dedupe(events []domain.Event) []domain.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		key := ev.Title + "\x00" + ev.Date + "\x00" + string(ev.Category)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// validateImported applies the lenient import checks: title, date, and
// category must be present. Imports from older builds may carry category
// strings this build does not know; they are kept as-is.
func validateImported(ev domain.Event) error {
	if ev.Title == "" {
		return fmt.Errorf("title is required")
	}
	if ev.Date == "" {
		return fmt.Errorf("date is required")
	}
	if ev.Category == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}
