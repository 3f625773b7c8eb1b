package callout

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// maxBodyLength is the largest request or response body the audit log
// stores, bounded by the log table's column size downstream.
const maxBodyLength = 32000

// truncationMarker is appended to bodies cut at maxBodyLength.
const truncationMarker = "..."

// Recorder writes one audit row per callout attempt, success or failure.
// Recording is strictly best-effort: a row that cannot be persisted goes to
// the diagnostics channel and the caller's control flow is never touched.
type Recorder struct {
	store Store
	diag  *Diagnostics
	log   hclog.Logger
	clock Clock
}

// NewRecorder creates a Recorder persisting through store.
func NewRecorder(store Store, diag *Diagnostics, logger hclog.Logger, clock Clock) *Recorder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{store: store, diag: diag, log: logger, clock: clock}
}

// Record persists one attempt.
func (r *Recorder) Record(ctx context.Context, req Request, out Outcome) {
	entry := LogEntry{
		ID:           uuid.NewString(),
		Endpoint:     req.Endpoint,
		Method:       req.Method,
		Path:         req.Path,
		RequestBody:  Truncate(req.Body),
		ResponseBody: Truncate(out.Body),
		Status:       out.Status,
		Class:        out.Class,
		Detail:       out.Detail,
		Elapsed:      out.Elapsed,
		CreatedAt:    r.clock.Now(),
	}

	r.log.Debug("callout attempt",
		"endpoint", entry.Endpoint,
		"method", entry.Method,
		"path", entry.Path,
		"status", statusOrZero(entry.Status),
		"class", entry.Class,
		"elapsed", entry.Elapsed,
	)

	if r.store == nil {
		return
	}
	if err := r.store.AppendLog(ctx, entry); err != nil && r.diag != nil {
		r.diag.Report(ctx, "log_persist_failed", map[string]any{
			"entry_id": entry.ID,
			"endpoint": entry.Endpoint,
			"path":     entry.Path,
			"error":    err.Error(),
		})
	}
}

// Truncate cuts a body down to maxBodyLength and appends the marker. Bodies
// at or under the limit pass through unchanged.
func Truncate(body string) string {
	if len(body) <= maxBodyLength {
		return body
	}
	return body[:maxBodyLength] + truncationMarker
}

func statusOrZero(status *int) int {
	if status == nil {
		return 0
	}
	return *status
}
