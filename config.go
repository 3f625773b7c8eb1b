package callout

import (
	"database/sql"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 5 * time.Second
	defaultLockTTL      = 2 * time.Minute
	defaultDeadLetter   = "callout:deadletter"
)

// Config holds the settings and resources needed by the callout pipeline.
type Config struct {
	// DB is the user-provided database connection where the callout_jobs and
	// callout_logs tables live. Required unless a custom Store is supplied.
	DB *sql.DB

	// DbName is the name of the database holding the tables.
	DbName string

	// Store overrides the MySQL-backed job and log store. Mainly for tests.
	Store Store

	// Transport issues the actual HTTP calls. Defaults to an HTTPTransport.
	Transport Transport

	// Resolver maps symbolic endpoint names to base URLs and credentials.
	Resolver Resolver

	// Policy is the default retry policy applied to every work item.
	Policy Policy

	// BatchSize caps how many items one worker pass processes inline before
	// the remainder is re-enqueued as a fresh job.
	BatchSize int

	// PollInterval is how frequently workers check for new jobs.
	PollInterval time.Duration

	// LockTTL is how long a claimed job stays locked to one worker.
	LockTTL time.Duration

	// Synchronous disables re-enqueueing: Submit processes the whole item
	// sequence inline. Meant for tests that need deterministic ordering.
	Synchronous bool

	// Logger receives structured diagnostics. Defaults to a named hclog
	// logger writing to stderr.
	Logger hclog.Logger

	// DeadLetter, when set, receives JSON dead-letter entries for exhausted
	// work items and for log rows that could not be persisted.
	DeadLetter *redis.Client

	// DeadLetterKey is the redis list the dead letters are pushed to.
	DeadLetterKey string

	// Clock abstracts time. Defaults to SystemClock.
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.Store == nil && c.DB != nil {
		c.Store = NewMySQLStore(c.DB, c.DbName)
	}
	if c.Transport == nil {
		c.Transport = NewHTTPTransport(c.Resolver)
	}
	if c.Policy.MaxAttempts <= 0 {
		c.Policy = DefaultPolicy()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaultLockTTL
	}
	if c.Logger == nil {
		c.Logger = hclog.New(&hclog.LoggerOptions{Name: "callout"})
	}
	if c.DeadLetterKey == "" {
		c.DeadLetterKey = defaultDeadLetter
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}
