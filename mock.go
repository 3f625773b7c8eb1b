package callout

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockTransport is a substitutable Transport that maps request path patterns
// to canned outcomes, so pipelines can be exercised deterministically
// without network access.
//
// Built-in patterns: a path containing "/success" yields 200, "/error" 500,
// "/ratelimited" 429, and "/timeout" a transport-level timeout. Script adds
// per-pattern outcome sequences that take precedence and are consumed one
// attempt at a time (the last one repeats).
type MockTransport struct {
	mu      sync.Mutex
	calls   int
	scripts []*script
}

type script struct {
	substr   string
	outcomes []Outcome
	next     int
}

// NewMockTransport creates an empty mock.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Script queues outcomes for requests whose path contains substr.
func (m *MockTransport) Script(substr string, outcomes ...Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, &script{substr: substr, outcomes: outcomes})
}

// Calls reports how many times Send was invoked.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Send implements Transport.
func (m *MockTransport) Send(_ context.Context, req Request) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	for _, s := range m.scripts {
		if !strings.Contains(req.Path, s.substr) || len(s.outcomes) == 0 {
			continue
		}
		out := s.outcomes[s.next]
		if s.next < len(s.outcomes)-1 {
			s.next++
		}
		return out, nil
	}

	switch {
	case strings.Contains(req.Path, "/success"):
		return CannedOutcome(200, `{"ok":true}`), nil
	case strings.Contains(req.Path, "/error"):
		return CannedOutcome(500, `{"error":"internal"}`), nil
	case strings.Contains(req.Path, "/ratelimited"):
		return CannedOutcome(429, `{"error":"slow down"}`), nil
	case strings.Contains(req.Path, "/timeout"):
		return TimeoutOutcome(), nil
	default:
		return CannedOutcome(200, ""), nil
	}
}

// CannedOutcome builds an Outcome for an HTTP status the way the real
// transport would classify it.
func CannedOutcome(status int, body string) Outcome {
	out := Outcome{
		Status: &status,
		Body:   body,
		Class:  classifyStatus(status),
	}
	if !out.Success() {
		out.Detail = fmt.Sprintf("canned response with status %d", status)
	}
	return out
}

// TimeoutOutcome builds an Outcome for an attempt that never got a response.
func TimeoutOutcome() Outcome {
	return Outcome{
		Class:  ClassTimeout,
		Detail: "canned timeout",
	}
}
