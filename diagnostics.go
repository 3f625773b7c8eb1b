package callout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

// Diagnostics is the side channel for failures that must not disturb the
// calling operation: log rows that could not be persisted and work items
// that exhausted their retry budget. Every report lands in the structured
// log; when a redis client is configured it is also pushed onto a
// dead-letter list for later inspection or replay.
type Diagnostics struct {
	logger hclog.Logger
	client *redis.Client
	key    string
	clock  Clock
}

func newDiagnostics(cfg Config) *Diagnostics {
	return &Diagnostics{
		logger: cfg.Logger,
		client: cfg.DeadLetter,
		key:    cfg.DeadLetterKey,
		clock:  cfg.Clock,
	}
}

type deadLetterEntry struct {
	Kind    string         `json:"kind"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Report records a diagnostic event. It never returns an error; a broken
// side channel only gets logged.
func (d *Diagnostics) Report(ctx context.Context, kind string, payload map[string]any) {
	args := make([]any, 0, 2*len(payload)+2)
	args = append(args, "kind", kind)
	for k, v := range payload {
		args = append(args, k, v)
	}
	d.logger.Error("callout diagnostic", args...)

	if d.client == nil {
		return
	}
	data, err := json.Marshal(deadLetterEntry{Kind: kind, At: d.clock.Now(), Payload: payload})
	if err != nil {
		d.logger.Error("encoding dead letter", "kind", kind, "error", err)
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.client.LPush(pushCtx, d.key, data).Err(); err != nil {
		d.logger.Error("pushing dead letter", "kind", kind, "error", err)
	}
}
