package callout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// StatusCallback reports the settled result of one work item so the caller
// can mark its business record synchronized or errored. Callbacks run after
// the item's retry budget is spent and must not perform callouts of their
// own; they should only touch local state or the record store.
type StatusCallback func(ctx context.Context, item WorkItem, status ItemStatus, out Outcome) error

// batchPayload is the JSON shape stored in a job row: the remaining items
// plus the batch size the submission was made with.
type batchPayload struct {
	Items     []WorkItem `json:"items"`
	BatchSize int        `json:"batch_size"`
}

// Dispatcher runs callout batches off the calling path. One job processes at
// most BatchSize items; a remainder becomes a fresh pending job, so a single
// worker pass performs a bounded number of callouts no matter how large the
// submission was.
type Dispatcher struct {
	store     Store
	exec      *Executor
	diag      *Diagnostics
	logger    hclog.Logger
	policy    Policy
	batchSize int
	clock     Clock

	// synchronous processes the whole submission inline instead of
	// enqueueing, keeping tests deterministic.
	synchronous bool

	cbMu      sync.RWMutex
	callbacks map[Operation]StatusCallback

	// wake, when set, nudges idle workers after a job is enqueued.
	wake func()
}

func newDispatcher(cfg Config, exec *Executor, diag *Diagnostics) *Dispatcher {
	return &Dispatcher{
		store:       cfg.Store,
		exec:        exec,
		diag:        diag,
		logger:      cfg.Logger,
		policy:      cfg.Policy,
		batchSize:   cfg.BatchSize,
		clock:       cfg.Clock,
		synchronous: cfg.Synchronous,
		callbacks:   make(map[Operation]StatusCallback),
	}
}

// RegisterCallback associates op with a status callback. Submitting an
// operation without a registered callback is a contract violation.
func (d *Dispatcher) RegisterCallback(op Operation, cb StatusCallback) {
	d.cbMu.Lock()
	d.callbacks[op] = cb
	d.cbMu.Unlock()
}

func (d *Dispatcher) callback(op Operation) (StatusCallback, error) {
	d.cbMu.RLock()
	cb, ok := d.callbacks[op]
	d.cbMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCallback, op)
	}
	return cb, nil
}

// Submit schedules items for asynchronous processing under op. batchSize
// caps the callouts per worker pass; zero means the configured default.
//
// In synchronous mode the whole sequence is processed inline, batch by
// batch, and nothing is enqueued.
func (d *Dispatcher) Submit(ctx context.Context, op Operation, items []WorkItem, batchSize int) error {
	if _, err := d.callback(op); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = d.batchSize
	}

	if d.synchronous {
		for len(items) > 0 {
			var err error
			items, err = d.runBatch(ctx, op, items, batchSize, false)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := d.enqueue(ctx, op, items, batchSize); err != nil {
		return err
	}
	if d.wake != nil {
		d.wake()
	}
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, op Operation, items []WorkItem, batchSize int) error {
	payload, err := json.Marshal(batchPayload{Items: items, BatchSize: batchSize})
	if err != nil {
		return fmt.Errorf("encoding batch payload: %w", err)
	}
	id, err := d.store.CreateJob(ctx, op, payload, d.clock.Now())
	if err != nil {
		return err
	}
	d.logger.Info("enqueued callout batch",
		"job_id", id,
		"operation", op,
		"items", len(items),
		"batch_size", batchSize,
	)
	return nil
}

// runJob executes one claimed job row: at most BatchSize items inline, then
// the remainder as a fresh job. Used by workers.
func (d *Dispatcher) runJob(ctx context.Context, rec *JobRecord) error {
	var payload batchPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return fmt.Errorf("decoding payload of job %d: %w", rec.ID, err)
	}
	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = d.batchSize
	}

	remainder, err := d.runBatch(ctx, rec.Operation, payload.Items, batchSize, true)
	if err != nil {
		return err
	}
	if len(remainder) > 0 {
		d.logger.Debug("re-enqueueing remainder",
			"job_id", rec.ID,
			"operation", rec.Operation,
			"remaining", len(remainder),
		)
	}
	return nil
}

// runBatch processes the first batchSize items of items and returns the
// untouched remainder. When enqueueRest is set the remainder is persisted as
// a new job before returning, so no item is ever dropped or run twice.
func (d *Dispatcher) runBatch(ctx context.Context, op Operation, items []WorkItem, batchSize int, enqueueRest bool) ([]WorkItem, error) {
	cb, err := d.callback(op)
	if err != nil {
		return nil, err
	}

	n := batchSize
	if n > len(items) {
		n = len(items)
	}
	inline, remainder := items[:n], items[n:]

	for _, item := range inline {
		out, err := d.exec.Execute(ctx, item.Request, d.policy)
		if err != nil && out.Class == "" {
			// Contract violation before anything went on the wire. Surface
			// it like any other failed outcome so the item still settles.
			out = Outcome{Class: ClassTransportFailure, Detail: err.Error()}
		}

		status := ItemSynced
		if !out.Success() {
			status = ItemErrored
			d.diag.Report(ctx, "item_errored", map[string]any{
				"ref":       item.Ref,
				"operation": string(op),
				"class":     string(out.Class),
				"detail":    out.Detail,
			})
		}
		if err := cb(ctx, item, status, out); err != nil {
			// Status updates are best-effort; a failing one must not stop
			// the rest of the batch.
			d.diag.Report(ctx, "status_update_failed", map[string]any{
				"ref":       item.Ref,
				"operation": string(op),
				"error":     err.Error(),
			})
		}
	}

	if enqueueRest && len(remainder) > 0 {
		if err := d.enqueue(ctx, op, remainder, batchSize); err != nil {
			return nil, err
		}
	}
	return remainder, nil
}
