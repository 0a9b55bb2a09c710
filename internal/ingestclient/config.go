package ingestclient

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultBatchSize  = 50
	DefaultWorkers    = 4
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 5
	DefaultRetryWait  = time.Second
)

// maxBatchSize mirrors the server's per-request commit cap.
const maxBatchSize = 5000

// Config holds the settings of a push run.
type Config struct {
	BaseURL    string        // Base URL of the server
	Token      string        // Bearer token; empty means log in or go anonymous
	Email      string        // Login email used when Token is empty
	Password   string        // Login password used when Token is empty
	BatchSize  int           // Commits per POST /ingest
	Workers    int           // Concurrent batch uploads
	Timeout    time.Duration // HTTP request timeout
	MaxRetries int           // Retries per batch after a 429
	RetryWait  time.Duration // Wait when the server sends no Retry-After
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > maxBatchSize {
		c.BatchSize = maxBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = DefaultRetryWait
	}
	return c
}

// Stats summarises a push run.
type Stats struct {
	Commits    int           `json:"commits"`
	Batches    int           `json:"batches"`
	Accepted   int           `json:"accepted"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Retries    int           `json:"retries"`
	Duration   time.Duration `json:"duration"`
}

// SeedStats summarises a seed upload.
type SeedStats struct {
	Employees int `json:"employees"`
	Projects  int `json:"projects"`
	Skipped   int `json:"skipped"`
}
