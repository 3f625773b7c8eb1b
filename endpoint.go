package callout

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Endpoint is a resolved callout target: a base URL plus the headers
// (typically authentication) every request to it must carry.
type Endpoint struct {
	BaseURL string
	Header  map[string]string
}

// Resolver maps a symbolic endpoint name to a concrete Endpoint. Keeping the
// mapping behind an interface lets base URLs and credentials rotate without
// code changes at call sites.
type Resolver interface {
	Resolve(ctx context.Context, name string) (Endpoint, error)
}

// StaticResolver is a fixed name -> endpoint table.
type StaticResolver map[string]Endpoint

// Resolve implements Resolver.
func (r StaticResolver) Resolve(_ context.Context, name string) (Endpoint, error) {
	ep, ok := r[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return ep, nil
}

// Token is a credential with an expiry timestamp.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenSource fetches a fresh credential, e.g. from an OAuth token endpoint.
type TokenSource interface {
	Fetch(ctx context.Context) (Token, error)
}

// TokenCache caches a Token until shortly before it expires, refreshing it
// through the underlying source under a mutex so concurrent callers trigger
// at most one refresh. It replaces process-global token state with an
// injectable object.
type TokenCache struct {
	source TokenSource
	clock  Clock
	leeway time.Duration

	mu  sync.Mutex
	tok Token
}

// NewTokenCache wraps source with caching. Tokens are considered stale one
// minute before their expiry.
func NewTokenCache(source TokenSource, clock Clock) *TokenCache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenCache{source: source, clock: clock, leeway: time.Minute}
}

// Get returns a valid token, refreshing it if the cached one is stale.
func (c *TokenCache) Get(ctx context.Context) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok.Value != "" && c.clock.Now().Before(c.tok.ExpiresAt.Add(-c.leeway)) {
		return c.tok, nil
	}
	tok, err := c.source.Fetch(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("refreshing credential: %w", err)
	}
	c.tok = tok
	return tok, nil
}

// BearerResolver decorates a Resolver so every resolved endpoint carries an
// Authorization header sourced from a TokenCache.
type BearerResolver struct {
	Base  Resolver
	Cache *TokenCache
}

// Resolve implements Resolver.
func (r *BearerResolver) Resolve(ctx context.Context, name string) (Endpoint, error) {
	ep, err := r.Base.Resolve(ctx, name)
	if err != nil {
		return Endpoint{}, err
	}
	tok, err := r.Cache.Get(ctx)
	if err != nil {
		return Endpoint{}, err
	}

	header := make(map[string]string, len(ep.Header)+1)
	for k, v := range ep.Header {
		header[k] = v
	}
	header["Authorization"] = "Bearer " + tok.Value
	ep.Header = header
	return ep, nil
}
