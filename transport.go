package callout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport issues a single callout attempt and reports a normalized Outcome.
// Network-level problems (refused connections, timeouts, TLS errors) are part
// of the Outcome; the returned error is reserved for contract violations such
// as an insecure target or a malformed request.
type Transport interface {
	Send(ctx context.Context, req Request) (Outcome, error)
}

// HTTPTransport is the net/http-backed Transport. Targets are resolved
// through a Resolver and must use HTTPS.
type HTTPTransport struct {
	resolver Resolver
	client   *http.Client

	// DefaultTimeout bounds attempts whose Request carries no timeout.
	DefaultTimeout time.Duration
}

// NewHTTPTransport creates a transport resolving endpoint names through
// resolver.
func NewHTTPTransport(resolver Resolver) *HTTPTransport {
	return &HTTPTransport{
		resolver:       resolver,
		client:         &http.Client{},
		DefaultTimeout: 10 * time.Second,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (Outcome, error) {
	if t.resolver == nil {
		return Outcome{}, fmt.Errorf("%w: no resolver configured", ErrMalformedRequest)
	}
	if req.Method == "" {
		return Outcome{}, fmt.Errorf("%w: empty method", ErrMalformedRequest)
	}

	ep, err := t.resolver.Resolve(ctx, req.Endpoint)
	if err != nil {
		return Outcome{}, err
	}
	target, err := secureTarget(ep.BaseURL, req.Path)
	if err != nil {
		return Outcome{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	for k, v := range ep.Header {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{
			Class:   classifyTransportError(err),
			Detail:  err.Error(),
			Elapsed: elapsed,
		}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed = time.Since(start)
	if err != nil {
		return Outcome{
			Class:   classifyTransportError(err),
			Detail:  fmt.Sprintf("reading response body: %v", err),
			Elapsed: elapsed,
		}, nil
	}

	status := resp.StatusCode
	out := Outcome{
		Status:  &status,
		Body:    string(respBody),
		Class:   classifyStatus(status),
		Elapsed: elapsed,
	}
	if !out.Success() {
		out.Detail = fmt.Sprintf("%s %s returned %d", req.Method, req.Path, status)
	}
	return out, nil
}

// secureTarget joins base and path after checking the scheme. Plaintext
// targets are rejected before any network activity happens.
func secureTarget(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("%w: %s", ErrInsecureTarget, base)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/"), nil
}

func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ClassNone
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500:
		return ClassServerError
	default:
		return ClassClientError
	}
}

func classifyTransportError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	return ClassTransportFailure
}
