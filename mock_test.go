package callout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockBuiltinPatterns(t *testing.T) {
	mock := NewMockTransport()

	tests := []struct {
		path       string
		wantStatus int
		wantClass  ErrorClass
		success    bool
	}{
		{"/v1/success", 200, ClassNone, true},
		{"/v1/error", 500, ClassServerError, false},
		{"/v1/ratelimited", 429, ClassRateLimited, false},
		{"/anything-else", 200, ClassNone, true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			out, err := mock.Send(context.Background(), Request{Endpoint: "crm", Method: "GET", Path: tc.path})
			require.NoError(t, err)
			assert.Equal(t, tc.success, out.Success())
			assert.Equal(t, tc.wantClass, out.Class)
			require.NotNil(t, out.Status)
			assert.Equal(t, tc.wantStatus, *out.Status)
		})
	}
}

func TestMockTimeoutPattern(t *testing.T) {
	mock := NewMockTransport()

	out, err := mock.Send(context.Background(), Request{Endpoint: "crm", Method: "GET", Path: "/v1/timeout"})
	require.NoError(t, err)

	assert.False(t, out.Success())
	assert.Nil(t, out.Status)
	assert.Equal(t, ClassTimeout, out.Class)
}

func TestMockScriptConsumesSequenceThenRepeatsLast(t *testing.T) {
	mock := NewMockTransport()
	mock.Script("/flaky", CannedOutcome(503, ""), CannedOutcome(200, "ok"))

	req := Request{Endpoint: "crm", Method: "GET", Path: "/flaky"}

	first, err := mock.Send(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, first.Status)
	assert.Equal(t, 503, *first.Status)

	for i := 0; i < 3; i++ {
		out, err := mock.Send(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, out.Status)
		assert.Equal(t, 200, *out.Status)
	}
	assert.Equal(t, 4, mock.Calls())
}

func TestMockScriptTakesPrecedenceOverBuiltins(t *testing.T) {
	mock := NewMockTransport()
	mock.Script("/success", CannedOutcome(503, "down for maintenance"))

	out, err := mock.Send(context.Background(), Request{Endpoint: "crm", Method: "GET", Path: "/success"})
	require.NoError(t, err)
	require.NotNil(t, out.Status)
	assert.Equal(t, 503, *out.Status)
}
