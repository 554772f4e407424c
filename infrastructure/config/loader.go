// Package config loads the domain configuration structs from YAML files
// and resolves worker identity from the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainconfig "github.com/Mizzle-Technology/task-manager/domain/config"
)

// File is the top-level shape of a task-manager YAML config file.
type File struct {
	Ledger   domainconfig.LedgerConfig   `yaml:"ledger"`
	Worker   domainconfig.WorkerConfig   `yaml:"worker"`
	Ingester domainconfig.IngesterConfig `yaml:"ingester"`
}

// rawIngester shadows IngesterConfig during parsing so an absent
// deadLetterFailedMessages key can be told apart from an explicit
// false. The default is true.
type rawIngester struct {
	BatchSize                int    `yaml:"batchSize"`
	PollingWaitSeconds       int    `yaml:"pollingWaitSeconds"`
	DeadLetterFailedMessages *bool  `yaml:"deadLetterFailedMessages"`
	Source                   string `yaml:"source"`
	TopicName                string `yaml:"topicName"`
	SubscriptionName         string `yaml:"subscriptionName"`
}

type rawFile struct {
	Ledger   domainconfig.LedgerConfig `yaml:"ledger"`
	Worker   domainconfig.WorkerConfig `yaml:"worker"`
	Ingester rawIngester               `yaml:"ingester"`
}

// Loader loads a File from disk. With ApplyDefaults set, zero-valued
// timeouts, intervals, batch sizes and retry budgets are filled in from
// the domain defaults after parse; other fields are left as parsed.
type Loader struct {
	// ApplyDefaults backfills zero-valued duration/int fields with the
	// package defaults after parsing.
	ApplyDefaults bool
}

// NewLoader returns a Loader with defaulting enabled.
func NewLoader() *Loader {
	return &Loader{ApplyDefaults: true}
}

// LoadFile reads and parses a YAML config file at path.
func (l *Loader) LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	f := File{
		Ledger: raw.Ledger,
		Worker: raw.Worker,
		Ingester: domainconfig.IngesterConfig{
			BatchSize:                raw.Ingester.BatchSize,
			PollingWaitSeconds:       raw.Ingester.PollingWaitSeconds,
			DeadLetterFailedMessages: raw.Ingester.DeadLetterFailedMessages == nil || *raw.Ingester.DeadLetterFailedMessages,
			Source:                   raw.Ingester.Source,
			TopicName:                raw.Ingester.TopicName,
			SubscriptionName:         raw.Ingester.SubscriptionName,
		},
	}

	if l.ApplyDefaults {
		applyDefaults(&f)
	}

	return &f, nil
}

func applyDefaults(f *File) {
	def := domainconfig.DefaultLedgerConfig()
	if f.Ledger.ConnectTimeout == 0 {
		f.Ledger.ConnectTimeout = def.ConnectTimeout
	}
	if f.Ledger.QueryTimeout == 0 {
		f.Ledger.QueryTimeout = def.QueryTimeout
	}

	wdef := domainconfig.DefaultWorkerConfig()
	if f.Worker.StaleTaskTimeout == 0 {
		f.Worker.StaleTaskTimeout = wdef.StaleTaskTimeout
	}
	if f.Worker.HeartbeatInterval == 0 {
		f.Worker.HeartbeatInterval = wdef.HeartbeatInterval
	}
	if f.Worker.PollingInterval == 0 {
		f.Worker.PollingInterval = wdef.PollingInterval
	}
	if f.Worker.BatchSize == 0 {
		f.Worker.BatchSize = wdef.BatchSize
	}
	if f.Worker.MaxRetries == 0 {
		f.Worker.MaxRetries = wdef.MaxRetries
	}
	if f.Worker.StalledThreshold == 0 {
		f.Worker.StalledThreshold = wdef.StalledThreshold
	}

	idef := domainconfig.DefaultIngesterConfig()
	if f.Ingester.BatchSize == 0 {
		f.Ingester.BatchSize = idef.BatchSize
	}
	if f.Ingester.PollingWaitSeconds == 0 {
		f.Ingester.PollingWaitSeconds = idef.PollingWaitSeconds
	}
}
