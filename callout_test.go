package callout

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynchronousCallout(store Store, mock *MockTransport) *Callout {
	c := New(Config{
		Store:       store,
		Transport:   mock,
		Policy:      Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		BatchSize:   10,
		Synchronous: true,
		Logger:      hclog.NewNullLogger(),
	})
	c.exec.sleep = (&noSleep{}).sleep
	return c
}

func TestDoReturnsOutcomeAndLogsAttempts(t *testing.T) {
	store := newMemStore()
	mock := NewMockTransport()
	c := newSynchronousCallout(store, mock)

	out, err := c.Do(context.Background(), Request{Endpoint: "crm", Method: "GET", Path: "/success"})
	require.NoError(t, err)

	assert.True(t, out.Success())
	assert.Equal(t, 1, store.logCount())
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	store := newMemStore()
	mock := NewMockTransport()
	mock.Script("/contacts",
		CannedOutcome(429, ""),
		CannedOutcome(429, ""),
		CannedOutcome(200, `{"id":9}`),
	)
	c := newSynchronousCallout(store, mock)

	out, err := c.Do(context.Background(), Request{Endpoint: "crm", Method: "POST", Path: "/contacts"})
	require.NoError(t, err)

	assert.True(t, out.Success())
	assert.Equal(t, 3, mock.Calls())
	// One audit row per attempt, failed ones included.
	assert.Equal(t, 3, store.logCount())
}

func TestSubmitEndToEndSynchronous(t *testing.T) {
	store := newMemStore()
	mock := NewMockTransport()
	mock.Script("/contacts/bad", CannedOutcome(400, "invalid payload"))
	c := newSynchronousCallout(store, mock)

	type update struct {
		ref    string
		status ItemStatus
	}
	var updates []update
	c.RegisterCallback("SYNC_CONTACTS", func(_ context.Context, item WorkItem, status ItemStatus, _ Outcome) error {
		updates = append(updates, update{ref: item.Ref, status: status})
		return nil
	})

	items := []WorkItem{
		{Ref: "a", Request: Request{Endpoint: "crm", Method: "POST", Path: "/contacts/success"}},
		{Ref: "b", Request: Request{Endpoint: "crm", Method: "POST", Path: "/contacts/bad"}},
		{Ref: "c", Request: Request{Endpoint: "crm", Method: "POST", Path: "/contacts/success"}},
	}
	require.NoError(t, c.Submit(context.Background(), "SYNC_CONTACTS", items, 2))

	require.Len(t, updates, 3)
	assert.Equal(t, update{"a", ItemSynced}, updates[0])
	assert.Equal(t, update{"b", ItemErrored}, updates[1])
	assert.Equal(t, update{"c", ItemSynced}, updates[2])

	// Every attempt was audited and no job rows were left behind.
	assert.Equal(t, 3, store.logCount())
	assert.Equal(t, 0, store.pendingCount())
}

func TestWorkersDrainSubmission(t *testing.T) {
	store := newMemStore()
	mock := NewMockTransport()
	c := New(Config{
		Store:        store,
		Transport:    mock,
		Policy:       Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		BatchSize:    2,
		PollInterval: 10 * time.Millisecond,
		Logger:       hclog.NewNullLogger(),
	})

	done := make(chan struct{})
	var processed int
	c.RegisterCallback("SYNC", func(_ context.Context, _ WorkItem, _ ItemStatus, _ Outcome) error {
		processed++
		if processed == 5 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartWorkers(ctx, 1)
	defer c.Shutdown(time.Second)

	require.NoError(t, c.Submit(ctx, "SYNC", makeItems(5), 2))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("submission was not drained in time")
	}
	assert.Equal(t, 5, mock.Calls())
}
