package callout

import (
	"context"
	"time"
)

// Store persists batch jobs and the callout audit log. The MySQL
// implementation is the production one; tests substitute an in-memory fake.
type Store interface {
	// CreateJob inserts a new pending job and returns its ID.
	CreateJob(ctx context.Context, op Operation, payload []byte, availableAt time.Time) (uint64, error)

	// ClaimJob locks the oldest runnable job for workerID until lockUntil.
	// It returns (nil, nil) when no job is runnable.
	ClaimJob(ctx context.Context, workerID string, lockUntil time.Time) (*JobRecord, error)

	// FinishJob releases the lock and records the final status. detail
	// carries a human-readable failure message, empty on success.
	FinishJob(ctx context.Context, jobID uint64, status JobStatus, detail string) error

	// AppendLog persists one immutable callout log entry.
	AppendLog(ctx context.Context, entry LogEntry) error
}
