package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/repository"
)

// Repository implements repository.LocalState on SQLite. Each durable
// key (events, view state, backup) lives as one JSON row in a small
// key-value table, mirroring the key layout the browser build used.
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a SQLite-backed local state store.
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the key-value table if it does not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS calendar_kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`

	if _, err := r.client.DB().ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create calendar_kv table: %w", err)
	}

	r.log.Info("SQLite schema initialized successfully")
	return nil
}

func (r *Repository) set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	query := `
	INSERT INTO calendar_kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.client.DB().ExecContext(ctx, query, key, string(payload), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, key string, v any) (bool, error) {
	var payload string
	row := r.client.DB().QueryRowContext(ctx, `SELECT value FROM calendar_kv WHERE key = ?`, key)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SaveEvents overwrites the serialized event sequence.
func (r *Repository) SaveEvents(ctx context.Context, events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}
	return r.set(ctx, repository.KeyEvents, events)
}

// LoadEvents returns the stored event sequence.
func (r *Repository) LoadEvents(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	found, err := r.get(ctx, repository.KeyEvents, &events)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.Event{}, nil
	}
	return events, nil
}

// SaveState overwrites the persisted view state.
func (r *Repository) SaveState(ctx context.Context, state domain.CalendarState) error {
	return r.set(ctx, repository.KeyState, state)
}

// LoadState returns the persisted view state, or nil when absent.
func (r *Repository) LoadState(ctx context.Context) (*domain.CalendarState, error) {
	var state domain.CalendarState
	found, err := r.get(ctx, repository.KeyState, &state)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// SaveBackup overwrites the single backup snapshot.
func (r *Repository) SaveBackup(ctx context.Context, backup domain.Backup) error {
	return r.set(ctx, repository.KeyBackup, backup)
}

// LoadBackup returns the backup snapshot, or nil when absent.
func (r *Repository) LoadBackup(ctx context.Context) (*domain.Backup, error) {
	var backup domain.Backup
	found, err := r.get(ctx, repository.KeyBackup, &backup)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &backup, nil
}

// Ping checks if the database connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.DB().PingContext(ctx)
}

// Close closes the repository and releases resources.
func (r *Repository) Close() error {
	return r.client.Close()
}
