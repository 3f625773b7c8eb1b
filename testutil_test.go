package callout

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is an in-memory Store for tests: jobs are claimed FIFO by
// available_at insertion order, logs are appended to a slice.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	jobs     []*JobRecord
	finished map[uint64]string
	logs     []LogEntry
	failLogs bool
}

func newMemStore() *memStore {
	return &memStore{finished: make(map[uint64]string)}
}

func (s *memStore) CreateJob(_ context.Context, op Operation, payload []byte, availableAt time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	at := availableAt
	now := time.Now().UTC()
	s.jobs = append(s.jobs, &JobRecord{
		ID:          s.nextID,
		Operation:   op,
		Status:      JobPending,
		Payload:     payload,
		AvailableAt: &at,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return s.nextID, nil
}

func (s *memStore) ClaimJob(_ context.Context, workerID string, lockUntil time.Time) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.jobs {
		if rec.Status != JobPending {
			continue
		}
		rec.Status = JobInProgress
		rec.LockedBy = &workerID
		until := lockUntil
		rec.LockedUntil = &until
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) FinishJob(_ context.Context, jobID uint64, status JobStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.jobs {
		if rec.ID == jobID {
			rec.Status = status
			rec.LockedBy = nil
			rec.LockedUntil = nil
			s.finished[jobID] = detail
			return nil
		}
	}
	return errors.New("no such job")
}

func (s *memStore) AppendLog(_ context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLogs {
		return errors.New("log table unavailable")
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *memStore) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.jobs {
		if rec.Status == JobPending {
			n++
		}
	}
	return n
}

func (s *memStore) logCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// noSleep replaces Executor.sleep and records the requested delays.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return nil
}
