// Package docstore is the document store adapter for research papers.
//
// Papers are stored one document per paper with embedded author and keyword
// arrays. The package owns the MongoDB client lifecycle, the collection
// indexes, and every read, aggregation and write against the collection.
// Driver failures surface as domain.StoreUnavailableError for the document
// store; missing documents surface as domain.NotFoundError.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// TextIndexName is the name of the title/abstract text index.
const TextIndexName = "text_search"

// Client wraps a MongoDB client bound to the configured database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	config *config.MongoConfig
	logger zerolog.Logger
}

// Connect opens a client and verifies it with a primary ping.
func Connect(ctx context.Context, cfg *config.MongoConfig, logger zerolog.Logger) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Uint64("max_pool_size", cfg.MaxPoolSize).
		Msg("document store connection established")

	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		config: cfg,
		logger: logger.With().Str("component", "docstore").Logger(),
	}, nil
}

// Papers returns the configured paper collection.
func (c *Client) Papers() *mongo.Collection {
	return c.db.Collection(c.config.Collection)
}

// Ping verifies the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// HealthDetails names the database and collection being served.
func (c *Client) HealthDetails() map[string]any {
	return map[string]any{
		"database":   c.config.Database,
		"collection": c.config.Collection,
	}
}

// Disconnect closes the client.
func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Info().Msg("closing document store connection")
	return c.client.Disconnect(ctx)
}

// PaperIndexes are the indexes the paper collection relies on.
func PaperIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "abstract", Value: "text"}},
			Options: options.Index().SetName(TextIndexName),
		},
		{
			Keys:    bson.D{{Key: "paper_id", Value: 1}},
			Options: options.Index().SetName("idx_paper_id").SetUnique(true),
		},
		{Keys: bson.D{{Key: "journal", Value: 1}}, Options: options.Index().SetName("idx_journal")},
		{Keys: bson.D{{Key: "year", Value: -1}}, Options: options.Index().SetName("idx_year")},
		{Keys: bson.D{{Key: "authors", Value: 1}}, Options: options.Index().SetName("idx_authors")},
		{Keys: bson.D{{Key: "is_covid19", Value: 1}}, Options: options.Index().SetName("idx_is_covid19")},
		{Keys: bson.D{{Key: "source", Value: 1}}, Options: options.Index().SetName("idx_source")},
	}
}

// EnsureIndexes creates any missing paper indexes. Existing indexes with the
// same definition are left alone.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) ([]string, error) {
	names, err := coll.Indexes().CreateMany(ctx, PaperIndexes())
	if err != nil {
		return nil, fmt.Errorf("failed to create paper indexes: %w", err)
	}
	return names, nil
}

// storeError passes domain errors through and wraps everything else as an
// unavailable document store.
func storeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return domain.NewStoreUnavailableError(domain.StoreDocument, operation, err)
}
