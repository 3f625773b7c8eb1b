package callout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the worker goroutines and their shared wakeup channel.
type Manager struct {
	cfg    *Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	wakeup chan struct{}
}

func startWorkersInternal(ctx context.Context, count int, cfg *Config, dispatcher *Dispatcher) *Manager {
	mgrCtx, cancel := context.WithCancel(ctx)
	mgr := &Manager{
		cfg:    cfg,
		ctx:    mgrCtx,
		cancel: cancel,
		wakeup: make(chan struct{}, count),
	}

	cfg.Logger.Info("starting workers", "count", count)

	for i := 0; i < count; i++ {
		w := &Worker{
			id:         fmt.Sprintf("worker-%s", uuid.NewString()[:8]),
			cfg:        cfg,
			manager:    mgr,
			dispatcher: dispatcher,
		}
		mgr.wg.Add(1)
		go func(worker *Worker) {
			defer mgr.wg.Done()
			worker.Run(mgr.ctx)
		}(w)
	}

	return mgr
}

// Wake nudges an idle worker, if any. Non-blocking.
func (m *Manager) Wake() {
	select {
	case m.wakeup <- struct{}{}:
	default:
	}
}

// Shutdown attempts a graceful stop: cancel the context, then wait up to
// timeout for the workers to exit.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.cfg.Logger.Info("shutdown requested, stopping workers")
	m.cancel()

	doneCh := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		m.cfg.Logger.Info("all workers exited cleanly")
	case <-time.After(timeout):
		m.cfg.Logger.Error("shutdown timed out, some workers may still be running", "timeout", timeout)
	}
}
