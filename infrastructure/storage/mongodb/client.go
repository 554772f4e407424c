// Package mongodb provides the MongoDB-backed implementation of
// domain/ledger.Repository.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainconfig "github.com/Mizzle-Technology/task-manager/domain/config"
)

// Config contains MongoDB connection configuration.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "task_manager",
		Collection:     "tasks",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   10 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    10,
	}
}

// ConfigFromLedgerConfig adapts a domain config.LedgerConfig into a
// mongodb.Config, carrying over the collection and pool-size defaults
// the domain config does not model.
func ConfigFromLedgerConfig(c domainconfig.LedgerConfig) Config {
	cfg := DefaultConfig()
	if c.ConnectionString != "" {
		cfg.URI = c.ConnectionString
	}
	if c.DatabaseName != "" {
		cfg.Database = c.DatabaseName
	}
	if c.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.ConnectTimeout
	}
	if c.QueryTimeout > 0 {
		cfg.QueryTimeout = c.QueryTimeout
	}
	return cfg
}

// ConfigOption configures the MongoDB connection.
type ConfigOption func(*Config)

// WithURI sets the MongoDB connection URI.
func WithURI(uri string) ConfigOption {
	return func(c *Config) { c.URI = uri }
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) { c.Database = db }
}

// WithCollection sets the tasks collection name.
func WithCollection(name string) ConfigOption {
	return func(c *Config) { c.Collection = name }
}

// WithConnectTimeout sets the connection timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithQueryTimeout sets the default query timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.QueryTimeout = d }
}

// WithMaxPoolSize sets the maximum connection pool size.
func WithMaxPoolSize(size uint64) ConfigOption {
	return func(c *Config) { c.MaxPoolSize = size }
}

// WithMinPoolSize sets the minimum connection pool size.
func WithMinPoolSize(size uint64) ConfigOption {
	return func(c *Config) { c.MinPoolSize = size }
}

// Client wraps a MongoDB client and the tasks database/collection.
type Client struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
	config     Config
}

// NewClient connects to MongoDB and verifies the connection with a ping.
func NewClient(ctx context.Context, opts ...ConfigOption) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	return &Client{
		client:     client,
		database:   db,
		collection: db.Collection(cfg.Collection),
		config:     cfg,
	}, nil
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database { return c.database }

// Collection returns the configured tasks collection.
func (c *Client) Collection() *mongo.Collection { return c.collection }

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
