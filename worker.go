package callout

import (
	"context"
	"time"
)

// Worker polls the store for pending batch jobs and runs them through the
// dispatcher until its context is canceled.
type Worker struct {
	id         string
	cfg        *Config
	manager    *Manager
	dispatcher *Dispatcher
}

// Run keeps polling for jobs until the context is canceled. A wakeup signal
// from a fresh submission short-circuits the poll interval.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.cfg.Logger.Info("worker started", "worker_id", w.id)

	for {
		select {
		case <-ctx.Done():
			w.cfg.Logger.Info("worker stopping", "worker_id", w.id)
			return

		case <-w.manager.wakeup:
			w.drain(ctx)

		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and runs jobs until none are runnable. Running to empty after
// a wakeup keeps re-enqueued remainders moving without waiting a full poll
// interval per batch.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.fetchAndProcess(ctx)
		if err != nil || !processed {
			return
		}
	}
}

func (w *Worker) fetchAndProcess(ctx context.Context) (bool, error) {
	lockUntil := w.cfg.Clock.Now().Add(w.cfg.LockTTL)
	rec, err := w.cfg.Store.ClaimJob(ctx, w.id, lockUntil)
	if err != nil {
		w.cfg.Logger.Error("claiming job", "worker_id", w.id, "error", err)
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	start := time.Now()
	w.cfg.Logger.Info("processing job",
		"worker_id", w.id,
		"job_id", rec.ID,
		"operation", rec.Operation,
	)

	runErr := w.dispatcher.runJob(ctx, rec)

	finalStatus := JobCompleted
	detail := ""
	if runErr != nil {
		finalStatus = JobFailed
		detail = runErr.Error()
	}
	if err := w.cfg.Store.FinishJob(ctx, rec.ID, finalStatus, detail); err != nil {
		w.cfg.Logger.Error("finishing job",
			"worker_id", w.id,
			"job_id", rec.ID,
			"error", err,
		)
	}

	elapsed := time.Since(start)
	if runErr != nil {
		w.cfg.Logger.Error("job failed",
			"worker_id", w.id,
			"job_id", rec.ID,
			"operation", rec.Operation,
			"elapsed", elapsed,
			"error", runErr,
		)
	} else {
		w.cfg.Logger.Info("job completed",
			"worker_id", w.id,
			"job_id", rec.ID,
			"operation", rec.Operation,
			"elapsed", elapsed,
		)
	}
	return true, nil
}
