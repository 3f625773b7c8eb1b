package callout

import (
	"time"
)

// ErrorClass classifies the failure mode of a single callout attempt.
type ErrorClass string

const (
	ClassNone             ErrorClass = "NONE"
	ClassClientError      ErrorClass = "CLIENT_ERROR"
	ClassServerError      ErrorClass = "SERVER_ERROR"
	ClassRateLimited      ErrorClass = "RATE_LIMITED"
	ClassTransportFailure ErrorClass = "TRANSPORT_FAILURE"
	ClassTimeout          ErrorClass = "TIMEOUT"
)

// Request describes one outbound HTTP callout. Endpoint is a symbolic name
// resolved through the configured Resolver, so base URLs and credentials can
// rotate without touching call sites. A Request is built once per logical
// operation and never mutated afterwards.
type Request struct {
	// Endpoint is the symbolic name of the target (see Resolver).
	Endpoint string

	// Method is the HTTP verb, e.g. "GET" or "POST".
	Method string

	// Path is appended to the resolved base URL.
	Path string

	// Header holds optional extra headers.
	Header map[string]string

	// Body is the optional request payload.
	Body string

	// Timeout bounds one transport attempt. Zero means the transport default.
	Timeout time.Duration
}

// Outcome is the normalized result of one callout attempt. It is created once
// per attempt and never mutated. Transport-level failures are represented
// here (nil Status, Class set), not raised as errors.
type Outcome struct {
	// Status is the HTTP status code, or nil if no response was received.
	Status *int

	// Body is the response payload, if any.
	Body string

	// Class records the failure mode. ClassNone for 2xx responses.
	Class ErrorClass

	// Detail is a human-readable error message for failed attempts.
	Detail string

	// Elapsed is how long the attempt took.
	Elapsed time.Duration
}

// Success reports whether the attempt got a 2xx response.
func (o Outcome) Success() bool {
	return o.Status != nil && *o.Status >= 200 && *o.Status < 300
}

// JobStatus enumerates the possible states of a batch job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Operation names a kind of batch work (e.g. "SYNC_CONTACTS"). Status
// callbacks are registered per Operation.
type Operation string

// WorkItem is one callout within a batch. Ref identifies the business record
// the item belongs to, so the status callback can mark it synchronized or
// errored.
type WorkItem struct {
	Ref     string  `json:"ref"`
	Request Request `json:"request"`
}

// ItemStatus is what the dispatcher reports to the status callback after an
// item's retry budget is settled.
type ItemStatus string

const (
	ItemSynced  ItemStatus = "SYNCED"
	ItemErrored ItemStatus = "ERRORED"
)

// JobRecord corresponds to one row in the callout_jobs table. Payload holds
// the JSON-encoded remaining work items; a re-enqueued remainder is a fresh
// row, never an update of this one.
type JobRecord struct {
	ID          uint64
	Operation   Operation
	Status      JobStatus
	Payload     []byte
	LockedBy    *string
	LockedUntil *time.Time
	AvailableAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LogEntry is one immutable row of the callout audit log. Bodies are
// truncated before storage (see Recorder).
type LogEntry struct {
	ID           string
	Endpoint     string
	Method       string
	Path         string
	RequestBody  string
	ResponseBody string
	Status       *int
	Class        ErrorClass
	Detail       string
	Elapsed      time.Duration
	CreatedAt    time.Time
}
