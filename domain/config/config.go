// Package config provides the configuration models for the ledger,
// worker, and ingester components. Loading them from YAML/env is
// infrastructure/config's job; these are plain structs kept free of I/O.
package config

import "time"

// LedgerConfig configures the MongoDB-backed task ledger.
type LedgerConfig struct {
	// ConnectionString is the MongoDB URI.
	ConnectionString string `json:"connectionString" yaml:"connectionString"`

	// DatabaseName is the database holding the tasks collection.
	DatabaseName string `json:"databaseName" yaml:"databaseName"`

	// ConnectTimeout bounds the initial connection and index-build calls.
	ConnectTimeout time.Duration `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"`

	// QueryTimeout bounds individual repository operations.
	QueryTimeout time.Duration `json:"queryTimeout,omitempty" yaml:"queryTimeout,omitempty"`
}

// DefaultLedgerConfig returns sensible defaults; ConnectionString and
// DatabaseName still must be supplied by the caller.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   10 * time.Second,
	}
}

// WorkerConfig configures one Worker Loop instance.
type WorkerConfig struct {
	// StaleTaskTimeout is the heartbeat-expiry threshold used both for
	// TryAcquireTask eligibility and per-task processing deadlines.
	StaleTaskTimeout time.Duration `json:"staleTaskTimeout,omitempty" yaml:"staleTaskTimeout,omitempty"`

	// HeartbeatInterval is the worker heartbeat period.
	HeartbeatInterval time.Duration `json:"heartbeatInterval,omitempty" yaml:"heartbeatInterval,omitempty"`

	// PollingInterval is the worker idle sleep between batches.
	PollingInterval time.Duration `json:"pollingInterval,omitempty" yaml:"pollingInterval,omitempty"`

	// BatchSize caps task acquisition per loop iteration.
	BatchSize int `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`

	// MaxRetries is the worker retry budget per task.
	MaxRetries int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`

	// StalledThreshold is the heartbeat age past which a Running task is
	// eligible for stall recovery.
	StalledThreshold time.Duration `json:"stalledThreshold,omitempty" yaml:"stalledThreshold,omitempty"`
}

// DefaultWorkerConfig returns the production defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		StaleTaskTimeout:  5 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		PollingInterval:   10 * time.Second,
		BatchSize:         10,
		MaxRetries:        3,
		StalledThreshold:  5 * time.Minute,
	}
}

// IngesterConfig configures one Ingester pull loop.
type IngesterConfig struct {
	// BatchSize caps the number of messages received per tick.
	BatchSize int `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`

	// PollingWaitSeconds is the bus long-poll wait.
	PollingWaitSeconds int `json:"pollingWaitSeconds,omitempty" yaml:"pollingWaitSeconds,omitempty"`

	// DeadLetterFailedMessages controls the ingester's failure
	// disposition: dead-letter when true, abandon when false.
	DeadLetterFailedMessages bool `json:"deadLetterFailedMessages" yaml:"deadLetterFailedMessages"`

	// Source, TopicName and SubscriptionName populate the metadata tags
	// recorded on every persisted task.
	Source           string `json:"source,omitempty" yaml:"source,omitempty"`
	TopicName        string `json:"topicName,omitempty" yaml:"topicName,omitempty"`
	SubscriptionName string `json:"subscriptionName,omitempty" yaml:"subscriptionName,omitempty"`
}

// DefaultIngesterConfig returns the production defaults.
func DefaultIngesterConfig() IngesterConfig {
	return IngesterConfig{
		BatchSize:                10,
		PollingWaitSeconds:       30,
		DeadLetterFailedMessages: true,
	}
}

// MessageProcessingTimeout is the hard-coded wall-clock cap on
// individual message processing.
const MessageProcessingTimeout = 5 * time.Minute
