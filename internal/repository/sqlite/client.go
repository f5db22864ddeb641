package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	envConfig "github.com/mikecinchan/calendar/internal/config"
)

// Client wraps the SQLite handle backing the local state store.
type Client struct {
	db  *sql.DB
	log *zap.Logger
}

// NewClient opens (creating if necessary) the local database file and
// prepares the key-value schema.
func NewClient(ctx context.Context, cfg *envConfig.SQLite, log *zap.Logger) (*Client, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Single writer; the store serializes mutations above this layer.
	db.SetMaxOpenConns(1)

	// WAL keeps reads cheap; FULL sync keeps the durability guarantee
	// that a completed write survives a crash.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	log.Info("SQLite client created", zap.String("path", cfg.Path))

	return &Client{db: db, log: log}, nil
}

// DB returns the underlying handle.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}
