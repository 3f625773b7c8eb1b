package callout

import "errors"

// Contract violations raise synchronously; everything that happens on the
// wire is reported through Outcome instead.
var (
	// ErrInsecureTarget means the resolved endpoint does not use HTTPS.
	ErrInsecureTarget = errors.New("callout: endpoint is not https")

	// ErrUnknownEndpoint means the resolver has no entry for the name.
	ErrUnknownEndpoint = errors.New("callout: unknown endpoint")

	// ErrMalformedRequest means the request could not be constructed.
	ErrMalformedRequest = errors.New("callout: malformed request")

	// ErrNoCallback means no status callback is registered for an operation.
	ErrNoCallback = errors.New("callout: no callback registered for operation")
)
