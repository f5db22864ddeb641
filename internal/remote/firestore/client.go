package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	envConfig "github.com/mikecinchan/calendar/internal/config"
)

// Client wraps a Firestore connection to the events collection and
// implements remote.Store.
type Client struct {
	client     *firestore.Client
	collection string
	log        *zap.Logger
}

// NewClient connects to Firestore using the configured project and
// optional service-account credentials file.
func NewClient(ctx context.Context, cfg *envConfig.Firestore, log *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.Info("Firestore client created",
		zap.String("project_id", cfg.ProjectID),
		zap.String("collection", cfg.Collection))

	return &Client{
		client:     client,
		collection: cfg.Collection,
		log:        log,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) events() *firestore.CollectionRef {
	return c.client.Collection(c.collection)
}
