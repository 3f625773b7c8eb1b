// Package callout provides a resilient outbound HTTP callout pipeline:
// a transport client with enforced HTTPS and bounded timeouts, retry with
// exponential backoff, a database-backed batch dispatcher with a worker
// pool, and a durable audit log of every attempt.
package callout

import (
	"context"
	"time"
)

// Callout is the entry point tying the pipeline together. Create one with
// New, register a status callback per operation, then either Do a single
// callout inline or Submit batches for asynchronous processing.
type Callout struct {
	cfg        *Config
	dispatcher *Dispatcher
	exec       *Executor
	recorder   *Recorder
	diag       *Diagnostics
	mgr        *Manager // set once workers start
}

// New wires a Callout from cfg, applying defaults for anything unset.
func New(cfg Config) *Callout {
	cfg = cfg.withDefaults()

	diag := newDiagnostics(cfg)
	recorder := NewRecorder(cfg.Store, diag, cfg.Logger, cfg.Clock)
	exec := NewExecutor(cfg.Transport, recorder, cfg.Logger)
	dispatcher := newDispatcher(cfg, exec, diag)

	return &Callout{
		cfg:        &cfg,
		dispatcher: dispatcher,
		exec:       exec,
		recorder:   recorder,
		diag:       diag,
	}
}

// RegisterCallback associates op with the status callback invoked for every
// settled work item of that operation.
func (c *Callout) RegisterCallback(op Operation, cb StatusCallback) {
	c.dispatcher.RegisterCallback(op, cb)
}

// Do performs one logical callout inline under the configured policy. The
// returned error is non-nil only for contract violations (insecure target,
// malformed request) or a canceled context; wire-level failures are in the
// Outcome.
func (c *Callout) Do(ctx context.Context, req Request) (Outcome, error) {
	return c.exec.Execute(ctx, req, c.cfg.Policy)
}

// DoWithPolicy is Do with an explicit retry policy.
func (c *Callout) DoWithPolicy(ctx context.Context, req Request, policy Policy) (Outcome, error) {
	return c.exec.Execute(ctx, req, policy)
}

// Submit schedules items for asynchronous processing under op. See
// Dispatcher.Submit.
func (c *Callout) Submit(ctx context.Context, op Operation, items []WorkItem, batchSize int) error {
	return c.dispatcher.Submit(ctx, op, items, batchSize)
}

// StartWorkers spawns count workers to process submitted batches. It returns
// immediately; call Shutdown later to stop them.
func (c *Callout) StartWorkers(ctx context.Context, count int) {
	if c.mgr != nil {
		c.cfg.Logger.Error("workers already started on this Callout instance")
		return
	}
	mgr := startWorkersInternal(ctx, count, c.cfg, c.dispatcher)
	c.mgr = mgr
	c.dispatcher.wake = mgr.Wake
}

// Shutdown gracefully stops all workers, waiting up to timeout.
func (c *Callout) Shutdown(timeout time.Duration) {
	if c.mgr == nil {
		c.cfg.Logger.Info("no workers to shut down")
		return
	}
	c.mgr.Shutdown(timeout)
	c.dispatcher.wake = nil
	c.mgr = nil
	c.cfg.Logger.Info("callout shutdown complete")
}
