package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Service holds the settings shared by both binaries.
type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
}

// SQLite configures the durable local cache.
type SQLite struct {
	Path string `envconfig:"SQLITE_PATH" default:"calendar.db"`
}

// Firestore configures the remote document collection. When Enabled is
// false the service runs local-only and all remote calls are skipped.
type Firestore struct {
	Enabled         bool   `envconfig:"FIRESTORE_ENABLED" default:"false"`
	ProjectID       string `envconfig:"FIRESTORE_PROJECT_ID"`
	CredentialsFile string `envconfig:"FIRESTORE_CREDENTIALS_FILE"`
	Collection      string `envconfig:"FIRESTORE_COLLECTION" default:"events"`
}

// Query configures the filter engine's memoized per-day index.
type Query struct {
	DayIndexTTL  time.Duration `envconfig:"QUERY_DAY_INDEX_TTL" default:"30s"`
	DayIndexSize int           `envconfig:"QUERY_DAY_INDEX_SIZE" default:"512"`
}

// Syncd configures the remote-watch daemon.
type Syncd struct {
	HealthCheckPort string `envconfig:"SYNCD_HEALTH_CHECK_PORT" default:"8081"`
}

type Config struct {
	Service   Service
	SQLite    SQLite
	Firestore Firestore
	Query     Query
	Syncd     Syncd
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Firestore.Enabled && cfg.Firestore.ProjectID == "" {
		return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when FIRESTORE_ENABLED is true")
	}

	return &cfg, nil
}
